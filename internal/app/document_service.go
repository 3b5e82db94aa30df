package app

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docfill/internal/docx"
	"docfill/internal/metrics"
	"docfill/internal/model"
	"docfill/internal/placeholder"
	"docfill/internal/repository"
)

const DocxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// TranscriptPublisher hands chat lines to the transcript pipeline.
type TranscriptPublisher interface {
	Publish(ctx context.Context, msg model.Message) error
}

// TranscriptReader lists persisted chat lines of a session.
type TranscriptReader interface {
	ListBySessionID(sessionID string, limit int) ([]model.Message, error)
	DeleteBySessionID(sessionID string) error
}

type DocumentService struct {
	store          repository.SessionStore
	editor         *Editor
	publisher      TranscriptPublisher
	transcripts    TranscriptReader
	metrics        *metrics.Recorder
	log            *zap.Logger
	locks          *keyedMutex
	maxUploadBytes int64
	now            func() time.Time
}

type UploadInput struct {
	Filename string
	Data     []byte
}

type UploadResult struct {
	SessionID    string   `json:"session_id"`
	Placeholders []string `json:"placeholders"`
	Message      string   `json:"message"`
}

type DownloadResult struct {
	Filename string
	MimeType string
	Data     []byte
}

// NewDocumentService wires the service. publisher and transcripts may be nil
// when the transcript pipeline is disabled.
func NewDocumentService(
	store repository.SessionStore,
	editor *Editor,
	publisher TranscriptPublisher,
	transcripts TranscriptReader,
	recorder *metrics.Recorder,
	log *zap.Logger,
	maxUploadBytes int64,
) *DocumentService {
	if log == nil {
		log = zap.NewNop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &DocumentService{
		store:          store,
		editor:         editor,
		publisher:      publisher,
		transcripts:    transcripts,
		metrics:        recorder,
		log:            log.Named("document_service"),
		locks:          newKeyedMutex(),
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}
}

func (s *DocumentService) MaxUploadBytes() int64 {
	return s.maxUploadBytes
}

func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	result, err := s.upload(ctx, in)
	if err != nil {
		s.metrics.ObserveUpload("rejected")
		return nil, err
	}
	s.metrics.ObserveUpload("accepted")
	return result, nil
}

func (s *DocumentService) upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Filename == "" || !strings.HasSuffix(strings.ToLower(in.Filename), ".docx") {
		return nil, ErrUnsupportedFile
	}
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(in.Data)) > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	doc, err := docx.Open(in.Data)
	if err != nil {
		s.log.Warn("reject unreadable upload", zap.String("filename", in.Filename), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	names := placeholder.Scan(doc)

	now := s.now()
	session := &model.Session{
		ID:           uuid.NewString(),
		Document:     in.Data,
		Filename:     SanitizeFilename(in.Filename),
		Placeholders: names,
		Values:       map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("store session failed: %w", err)
	}

	message := "No placeholders detected."
	if len(names) > 0 {
		message = fmt.Sprintf("Detected %d placeholder(s).", len(names))
	}
	s.log.Info("upload accepted",
		zap.String("session_id", session.ID),
		zap.String("filename", session.Filename),
		zap.Int("placeholders", len(names)),
	)
	s.record(ctx, session.ID, RoleAssistant, message)

	return &UploadResult{
		SessionID:    session.ID,
		Placeholders: names,
		Message:      message,
	}, nil
}

// Chat runs one turn of the conversation for a session.
func (s *DocumentService) Chat(ctx context.Context, in ChatInput) (*ChatReply, error) {
	if in.SessionID == "" {
		return nil, ErrSessionNotFound
	}
	unlock := s.locks.Lock(in.SessionID)
	defer unlock()

	session, err := s.load(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	in.Message = strings.TrimSpace(in.Message)
	action := dispatch(in, session)
	s.metrics.ObserveChatTurn(action)
	if in.Message != "" {
		s.record(ctx, session.ID, RoleUser, in.Message)
	}

	conv := &conversation{session: session}
	switch action {
	case ActionFillAll:
		conv.fillAll(in.FillAll)
	case ActionStart:
		conv.start()
	case ActionEdit:
		s.applyEdit(ctx, conv, in.Message)
	case ActionAnswer:
		conv.answer(in.Message)
	default:
		conv.idle()
	}

	if action != ActionIdle {
		session.UpdatedAt = s.now()
		if err := s.store.Put(ctx, session); err != nil {
			return nil, fmt.Errorf("store session failed: %w", err)
		}
	}

	reply := conv.reply()
	for _, m := range reply.Messages {
		s.record(ctx, session.ID, m.Role, m.Text)
	}
	return reply, nil
}

func (s *DocumentService) applyEdit(ctx context.Context, conv *conversation, instruction string) {
	result, err := s.editor.Edit(ctx, conv.session.Document, instruction)
	if err != nil {
		s.log.Error("ai edit could not be applied",
			zap.String("session_id", conv.session.ID),
			zap.Error(err),
		)
		conv.say(msgEditFailed)
		return
	}
	conv.session.Document = result.Document
	s.log.Info("ai edit handled",
		zap.String("session_id", conv.session.ID),
		zap.String("outcome", result.Outcome),
		zap.Int("lines_inserted", result.Inserted),
		zap.Int("lines_deleted", result.Deleted),
	)
	conv.say("Applied AI edit: %s", instruction)
}

// Preview renders the stored document with the session's values. Missing
// values are highlighted.
func (s *DocumentService) Preview(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrSessionNotFound
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	doc, err := docx.Open(session.Document)
	if err != nil {
		s.log.Error("preview load failed", zap.String("session_id", sessionID), zap.Error(err))
		return placeholder.ErrorFragment, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}

	values := session.Values
	if values == nil {
		// An empty mapping still highlights, so a fresh upload shows every token in red.
		values = map[string]string{}
	}
	html, err := placeholder.RenderHTML(doc, values)
	if err != nil {
		s.log.Error("preview render failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return html, nil
}

// Download applies the session's values and serializes the result. The stored
// document is not modified.
func (s *DocumentService) Download(ctx context.Context, sessionID string) (*DownloadResult, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	doc, err := docx.Open(session.Document)
	if err != nil {
		s.log.Error("download load failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDocumentUnreadable, err)
	}
	out, err := placeholder.Apply(doc, session.Values).Save()
	if err != nil {
		s.log.Error("download save failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDocumentRender, err)
	}
	return &DownloadResult{
		Filename: CompletedFilename(session.Filename),
		MimeType: DocxMimeType,
		Data:     out,
	}, nil
}

func (s *DocumentService) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionNotFound
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if _, err := s.load(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	if s.transcripts != nil {
		if err := s.transcripts.DeleteBySessionID(sessionID); err != nil {
			s.log.Warn("delete transcript failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	s.log.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// History returns the persisted transcript. It works for expired sessions
// too, since the transcript outlives the session store entry.
func (s *DocumentService) History(_ context.Context, sessionID string, limit int) ([]model.Message, error) {
	if s.transcripts == nil {
		return nil, ErrTranscriptDisabled
	}
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.transcripts.ListBySessionID(sessionID, limit)
}

func (s *DocumentService) load(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session failed: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *DocumentService) record(ctx context.Context, sessionID, role, text string) {
	if s.publisher == nil {
		return
	}
	msg := model.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   text,
		CreatedAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Warn("publish transcript failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename keeps the base name of an uploaded file and replaces
// characters outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document.docx"
	}
	return name
}

// CompletedFilename derives the download name, "<base>_completed.docx".
func CompletedFilename(filename string) string {
	base := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		base = filename[:i]
	}
	return base + "_completed.docx"
}
