package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"justify/internal/conversation"
	"justify/internal/domain"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func failure(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": APIError{Code: code, Message: message}})
}

func handleError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrInvalidDocument):
		failure(c, http.StatusBadRequest, "invalid_document", err.Error())
	case errors.Is(err, domain.ErrEmptyQuestion):
		failure(c, http.StatusBadRequest, "empty_question", "question is required")
	case errors.Is(err, conversation.ErrNotFound):
		failure(c, http.StatusNotFound, "not_found", "conversation not found")
	case errors.Is(err, domain.ErrEmptyIndex):
		failure(c, http.StatusConflict, "empty_index", "no documents have been uploaded")
	case errors.Is(err, domain.ErrGeneratorFailure):
		failure(c, http.StatusBadGateway, "generator_failure", err.Error())
	case errors.Is(err, domain.ErrRecognizerUnavailable):
		failure(c, http.StatusServiceUnavailable, "recognizer_unavailable", err.Error())
	default:
		failure(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
