package app

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUnsupportedFile    = errors.New("only .docx files are supported")
	ErrEmptyFile          = errors.New("uploaded file is empty")
	ErrFileTooLarge       = errors.New("uploaded file is too large")
	ErrDocumentUnreadable = errors.New("document cannot be read")
	ErrDocumentRender     = errors.New("document cannot be rendered")
	ErrTranscriptDisabled = errors.New("transcript is disabled")
)
