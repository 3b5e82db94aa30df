package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docfill/internal/app"
	"docfill/internal/docx"
	"docfill/internal/docx/docxtest"
	"docfill/internal/repository"
)

const letter = "Dear [Name], you owe [Amount]. [Amount] is due."

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) { return g.reply, g.err }
func (g stubGenerator) Name() string                                    { return "stub" }

func newTestRouter(t *testing.T, gen stubGenerator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemorySessionStore(time.Hour, time.Hour)
	editor := app.NewEditor(gen, time.Second, nil, nil)
	h := NewDocumentHandler(app.NewDocumentService(store, editor, nil, nil, nil, nil, 64<<10))

	r := gin.New()
	r.POST("/upload", h.Upload)
	r.POST("/chat", h.Chat)
	r.GET("/preview", h.Preview)
	r.GET("/download", h.Download)
	r.DELETE("/session", h.DeleteSession)
	r.GET("/history", h.History)
	return r
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func upload(t *testing.T, r *gin.Engine, b *docxtest.Builder) app.UploadResult {
	t.Helper()
	rec := serve(r, uploadRequest(t, "file", "My Letter.docx", b.Bytes()))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[app.UploadResult](t, rec)
}

func chat(t *testing.T, r *gin.Engine, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return serve(r, req)
}

func TestUploadEndpoint(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	res := upload(t, r, docxtest.New().Paragraph(letter))

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, []string{"Name", "Amount"}, res.Placeholders)
	assert.Equal(t, "Detected 2 placeholder(s).", res.Message)
}

func TestUploadEndpointErrors(t *testing.T) {
	valid := docxtest.New().Paragraph(letter).Bytes()
	tests := []struct {
		name     string
		field    string
		filename string
		data     []byte
		status   int
		message  string
	}{
		{name: "missing file", status: http.StatusBadRequest, message: "File is required."},
		{name: "wrong field", field: "document", filename: "a.docx", data: valid, status: http.StatusBadRequest, message: "File is required."},
		{name: "not docx", field: "file", filename: "a.txt", data: valid, status: http.StatusBadRequest, message: "Only .docx files are supported."},
		{name: "empty", field: "file", filename: "a.docx", status: http.StatusBadRequest, message: "Uploaded file is empty."},
		{name: "garbage", field: "file", filename: "a.docx", data: []byte("garbage"), status: http.StatusBadRequest, message: "Unable to process the .docx file."},
		{name: "too large", field: "file", filename: "a.docx", data: make([]byte, 64<<10+1), status: http.StatusRequestEntityTooLarge, message: "File is too large."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, stubGenerator{})
			rec := serve(r, uploadRequest(t, tt.field, tt.filename, tt.data))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.message, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestChatEndpointFlow(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	res := upload(t, r, docxtest.New().Paragraph(letter))

	rec := chat(t, r, map[string]any{"session_id": res.SessionID, "start": true})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["done"])
	assert.Equal(t, map[string]any{"filled": []any{}, "pending": "Name"}, body["state"])
	assert.Equal(t, []any{map[string]any{"role": "assistant", "text": `What value should replace "[Name]"?`}}, body["messages"])

	chat(t, r, map[string]any{"session_id": res.SessionID, "message": "Jo"})
	rec = chat(t, r, map[string]any{"session_id": res.SessionID, "message": "$5"})
	body = decode[map[string]any](t, rec)
	assert.Equal(t, true, body["done"])
	assert.Equal(t, map[string]any{"filled": []any{"Name", "Amount"}, "pending": nil}, body["state"])
}

func TestChatEndpointErrors(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})

	rec := chat(t, r, map[string]any{"session_id": "unknown", "start": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session.", decode[map[string]string](t, rec)["error"])

	rec = chat(t, r, map[string]any{"start": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session.", decode[map[string]string](t, rec)["error"])

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	res := upload(t, r, docxtest.New().Paragraph(letter))
	chat(t, r, map[string]any{"session_id": res.SessionID, "fill_all": map[string]string{"Name": "Jo"}})

	first := serve(r, httptest.NewRequest(http.MethodGet, "/preview?session_id="+res.SessionID, nil))
	second := serve(r, httptest.NewRequest(http.MethodGet, "/preview?session_id="+res.SessionID, nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t,
		`<p>Dear Jo, you owe <span style="color: red;">[Amount]</span>. <span style="color: red;">[Amount]</span> is due.</p>`,
		decode[PreviewResponse](t, first).HTML,
	)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/preview?session_id=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid session.", decode[map[string]string](t, rec)["error"])
}

func TestDownloadEndpoint(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	res := upload(t, r, docxtest.New().Paragraph(letter))
	chat(t, r, map[string]any{"session_id": res.SessionID, "fill_all": map[string]string{"Name": "Jo", "Amount": "$5"}})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/download?session_id="+res.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, app.DocxMimeType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=My_Letter_completed.docx`, rec.Header().Get("Content-Disposition"))

	doc, err := docx.Open(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Dear Jo, you owe $5. $5 is due.", app.FullText(doc))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/download?session_id=nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEditEndpointFailureKeepsDocument(t *testing.T) {
	r := newTestRouter(t, stubGenerator{err: context.DeadlineExceeded})
	res := upload(t, r, docxtest.New().Paragraph(letter))

	before := serve(r, httptest.NewRequest(http.MethodGet, "/download?session_id="+res.SessionID, nil)).Body.Bytes()
	rec := chat(t, r, map[string]any{"session_id": res.SessionID, "edit_mode": true, "message": "shorter"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, false, body["done"])
	after := serve(r, httptest.NewRequest(http.MethodGet, "/download?session_id="+res.SessionID, nil)).Body.Bytes()
	assert.Equal(t, before, after)
}

func TestDeleteSessionEndpoint(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	res := upload(t, r, docxtest.New().Paragraph(letter))

	rec := serve(r, httptest.NewRequest(http.MethodDelete, "/session?session_id="+res.SessionID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, res.SessionID, decode[map[string]string](t, rec)["deleted_session_id"])

	rec = serve(r, httptest.NewRequest(http.MethodDelete, "/session?session_id="+res.SessionID, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpointDisabled(t *testing.T) {
	r := newTestRouter(t, stubGenerator{})
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/history?session_id=x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
