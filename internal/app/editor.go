package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"docfill/internal/ai"
	"docfill/internal/docx"
	"docfill/internal/metrics"
)

const editPrompt = "Document content:\n%s\n\nUser request: %s\n\nProvide the full edited document text, preserving structure with double newlines for paragraphs."

// Edit outcomes reported to metrics and logs.
const (
	EditApplied   = "applied"
	EditUnchanged = "unchanged"
	EditFallback  = "fallback"
)

// Editor rewrites a whole document body from a generator reply.
type Editor struct {
	generator ai.Generator
	timeout   time.Duration
	metrics   *metrics.Recorder
	log       *zap.Logger
}

type EditResult struct {
	Document []byte
	Outcome  string
	// Inserted and Deleted count changed lines between the old and new text.
	Inserted int
	Deleted  int
}

func NewEditor(generator ai.Generator, timeout time.Duration, recorder *metrics.Recorder, log *zap.Logger) *Editor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Editor{
		generator: generator,
		timeout:   timeout,
		metrics:   recorder,
		log:       log.Named("editor"),
	}
}

// Edit applies instruction to the document in data. A generator failure, a
// reply whose text equals the current text, or a result that does not reopen
// returns data as it is. Only load and save faults are errors.
func (e *Editor) Edit(ctx context.Context, data []byte, instruction string) (*EditResult, error) {
	doc, err := docx.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}

	original := FullText(doc)
	started := time.Now()
	reply, outcome := e.generate(ctx, original, instruction)

	result := &EditResult{Document: data, Outcome: outcome}
	if outcome == EditFallback {
		e.metrics.ObserveEdit(outcome, time.Since(started))
		return result, nil
	}

	segments := splitSegments(reply)
	result.Inserted, result.Deleted = lineChanges(original, strings.Join(segments, "\n\n"))
	if result.Inserted == 0 && result.Deleted == 0 {
		result.Outcome = EditUnchanged
		e.metrics.ObserveEdit(result.Outcome, time.Since(started))
		return result, nil
	}

	doc.ClearBody()
	for _, segment := range segments {
		doc.AddParagraph(segment)
	}
	out, err := doc.Save()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDocumentRender, err)
	}
	if _, err := docx.Open(out); err != nil {
		e.log.Error("edited document does not reopen, keeping document", zap.Error(err))
		result.Outcome = EditFallback
		result.Inserted, result.Deleted = 0, 0
		e.metrics.ObserveEdit(result.Outcome, time.Since(started))
		return result, nil
	}
	result.Document = out
	e.metrics.ObserveEdit(result.Outcome, time.Since(started))
	return result, nil
}

func splitSegments(text string) []string {
	var out []string
	for _, segment := range strings.Split(strings.TrimSpace(text), "\n\n") {
		if segment = strings.TrimSpace(segment); segment != "" {
			out = append(out, segment)
		}
	}
	return out
}

func (e *Editor) generate(ctx context.Context, original, instruction string) (string, string) {
	if e.generator == nil {
		e.log.Warn("no generator configured, keeping document")
		return original, EditFallback
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.generator.Generate(callCtx, fmt.Sprintf(editPrompt, original, instruction))
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ai.ErrEmptyCompletion
	}
	if err != nil {
		fields := []zap.Field{zap.String("generator", e.generator.Name()), zap.Error(err)}
		if errors.Is(err, context.DeadlineExceeded) {
			fields = append(fields, zap.Duration("timeout", e.timeout))
		}
		e.log.Error("ai edit failed, keeping document", fields...)
		return original, EditFallback
	}
	return strings.TrimSpace(reply), EditApplied
}

// FullText joins the non-blank paragraph texts of doc, body first, with blank
// lines between them.
func FullText(doc *docx.Document) string {
	var parts []string
	for _, p := range doc.AllParagraphs() {
		if text := p.Text(); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// lineChanges reports how many lines a line diff of a and b inserts and
// deletes.
func lineChanges(a, b string) (inserted, deleted int) {
	if a == b {
		return 0, 0
	}
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	for _, d := range diffs {
		n := strings.Count(d.Text, "\n")
		if !strings.HasSuffix(d.Text, "\n") {
			n++
		}
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += n
		case diffmatchpatch.DiffDelete:
			deleted += n
		}
	}
	return inserted, deleted
}
