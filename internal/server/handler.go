package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"justify/internal/conversation"
	"justify/internal/domain"
	"justify/internal/loader"
)

type handler struct {
	session       Session
	loader        *loader.Loader
	conversations *conversation.Store
	maxUpload     int64
	log           *zap.Logger
}

type askRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question" binding:"required"`
}

type askResponse struct {
	ConversationID string                `json:"conversation_id"`
	Answer         string                `json:"answer"`
	Sources        []conversation.Source `json:"sources"`
}

func (h *handler) Health(c *gin.Context) {
	_, ready := h.session.Snapshot()
	success(c, gin.H{"ok": true, "documents_loaded": ready})
}

// Upload replaces the active document set with the uploaded files.
func (h *handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		failure(c, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		failure(c, http.StatusBadRequest, "invalid_upload", "no files in field \"files\"")
		return
	}

	var docs []domain.Document
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			handleError(c, err)
			return
		}
		loaded, err := h.loader.LoadReader(fh.Filename, f)
		f.Close()
		if err != nil {
			handleError(c, fmt.Errorf("%s: %w", fh.Filename, err))
			return
		}
		docs = append(docs, loaded...)
	}

	snap, err := h.session.Build(c.Request.Context(), docs)
	if err != nil {
		h.log.Warn("build failed", zap.Error(err))
		handleError(c, err)
		return
	}
	h.conversations.Reset()
	success(c, snap)
}

func (h *handler) Suggestions(c *gin.Context) {
	snap, ok := h.session.Snapshot()
	if !ok {
		handleError(c, domain.ErrEmptyIndex)
		return
	}
	success(c, snap.Suggestions)
}

func (h *handler) Glossary(c *gin.Context) {
	snap, ok := h.session.Snapshot()
	if !ok {
		handleError(c, domain.ErrEmptyIndex)
		return
	}
	success(c, snap.Glossary)
}

// Ask answers a question within a conversation, starting one when no id is given.
func (h *handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id := req.ConversationID
	if id == "" {
		id = h.conversations.Create()
	}
	memory, err := h.conversations.Turns(id)
	if err != nil {
		handleError(c, err)
		return
	}

	question := strings.TrimSpace(req.Question)
	answer, results, err := h.session.Ask(c.Request.Context(), question, memory)
	if err != nil {
		handleError(c, err)
		return
	}
	if err := h.conversations.Append(id, domain.Turn{Question: question, Answer: answer}); err != nil {
		handleError(c, err)
		return
	}
	success(c, askResponse{
		ConversationID: id,
		Answer:         answer,
		Sources:        conversation.Sources(results),
	})
}

func (h *handler) Transcript(c *gin.Context) {
	turns, err := h.conversations.Turns(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := conversation.WriteTranscript(&buf, turns); err != nil {
		handleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="legal_chat_history.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
}
