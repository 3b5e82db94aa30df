package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docfill/internal/app"
	"docfill/internal/placeholder"
	"docfill/internal/transport/http/response"
)

type DocumentHandler struct {
	service *app.DocumentService
}

type ChatRequest struct {
	SessionID string            `json:"session_id"`
	Message   string            `json:"message"`
	Start     bool              `json:"start"`
	FillAll   map[string]string `json:"fill_all"`
	EditMode  bool              `json:"edit_mode"`
}

type PreviewResponse struct {
	HTML string `json:"html"`
}

func NewDocumentHandler(service *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgFileRequired)
		return
	}

	input := app.UploadInput{Filename: fileHeader.Filename}
	if fileHeader.Size > h.service.MaxUploadBytes() {
		writeUploadError(c, app.ErrFileTooLarge)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgUnreadableFile)
		return
	}
	defer f.Close()
	input.Data, err = io.ReadAll(io.LimitReader(f, h.service.MaxUploadBytes()+1))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgUnreadableFile)
		return
	}

	result, err := h.service.Upload(c.Request.Context(), input)
	if err != nil {
		writeUploadError(c, err)
		return
	}
	response.OK(c, result)
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrUnsupportedFile):
		response.Error(c, http.StatusBadRequest, response.MsgUnsupportedFile)
	case errors.Is(err, app.ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, response.MsgEmptyFile)
	case errors.Is(err, app.ErrFileTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.MsgFileTooLarge)
	case errors.Is(err, app.ErrDocumentUnreadable):
		response.Error(c, http.StatusBadRequest, response.MsgUnreadableFile)
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternal)
	}
}

func (h *DocumentHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgInvalidPayload)
		return
	}

	reply, err := h.service.Chat(c.Request.Context(), app.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Start:     req.Start,
		FillAll:   req.FillAll,
		EditMode:  req.EditMode,
	})
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusBadRequest, response.MsgInvalidSession)
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternal)
		return
	}
	response.OK(c, reply)
}

func (h *DocumentHandler) Preview(c *gin.Context) {
	html, err := h.service.Preview(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusBadRequest, response.MsgInvalidSession)
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, PreviewResponse{HTML: placeholder.ErrorFragment})
		return
	}
	response.OK(c, PreviewResponse{HTML: html})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": result.Filename}))
	c.Data(http.StatusOK, result.MimeType, result.Data)
}

func (h *DocumentHandler) DeleteSession(c *gin.Context) {
	sessionID := c.Query("session_id")
	if err := h.service.DeleteSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, app.ErrSessionNotFound) {
			response.Error(c, http.StatusBadRequest, response.MsgInvalidSession)
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.MsgInternal)
		return
	}
	response.OK(c, gin.H{"deleted_session_id": sessionID})
}

func (h *DocumentHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.MsgInvalidPayload)
		return
	}

	messages, err := h.service.History(c.Request.Context(), c.Query("session_id"), limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.MsgInvalidSession)
		case errors.Is(err, app.ErrTranscriptDisabled):
			response.Error(c, http.StatusNotFound, response.MsgTranscriptAbsent)
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.MsgInternal)
		}
		return
	}
	response.OK(c, gin.H{"messages": messages})
}
