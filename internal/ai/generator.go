package ai

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("generator returned empty text")

// Generator turns a prompt into completion text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}
