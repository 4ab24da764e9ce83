// Package server exposes the document session over a JSON HTTP API.
package server

import (
	"context"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"justify/internal/conversation"
	"justify/internal/domain"
	"justify/internal/loader"
	"justify/internal/service"
)

// Session is the document session the API drives.
type Session interface {
	Build(ctx context.Context, docs []domain.Document) (*service.Snapshot, error)
	Ask(ctx context.Context, question string, memory []domain.Turn) (string, []domain.SearchResult, error)
	Snapshot() (*service.Snapshot, bool)
}

type RouterDeps struct {
	Session       Session
	Loader        *loader.Loader
	Conversations *conversation.Store
	MaxUploadMB   int
	Logger        *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{
		session:       deps.Session,
		loader:        deps.Loader,
		conversations: deps.Conversations,
		maxUpload:     int64(deps.MaxUploadMB) << 20,
		log:           log.Named("server"),
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 32 << 20
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(accessLog(h.log))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	api.POST("/documents", h.Upload)
	api.GET("/suggestions", h.Suggestions)
	api.GET("/glossary", h.Glossary)
	api.POST("/ask", h.Ask)
	api.GET("/conversations/:id/transcript", h.Transcript)

	return router
}
