// Package app assembles the session and its collaborators from config.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"justify/internal/answer"
	"justify/internal/chunker"
	"justify/internal/config"
	"justify/internal/conversation"
	"justify/internal/domain"
	"justify/internal/embedding"
	"justify/internal/embedding/cache"
	"justify/internal/embedding/gemini"
	"justify/internal/embedding/openai"
	"justify/internal/embedding/tfidf"
	"justify/internal/index"
	"justify/internal/llm"
	"justify/internal/loader"
	"justify/internal/logger"
	"justify/internal/ner"
	"justify/internal/ner/generative"
	"justify/internal/ner/rules"
	"justify/internal/resource"
	"justify/internal/service"
	"justify/internal/suggest"
	"justify/internal/summarizer"
	"justify/internal/vectorstore/memory"
)

// App holds the long-lived components of one process.
type App struct {
	Config        *config.AppConfig
	Logger        *zap.Logger
	Loader        *loader.Loader
	Session       *service.Session
	Conversations *conversation.Store
}

// New builds every component named by cfg. The recognizer is loaded on
// first use, not here.
func New(cfg *config.AppConfig) (*App, error) {
	log, err := logger.New(logger.Config{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		Console:    cfg.Log.Console,
		JSON:       cfg.Log.JSON,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return newWithLogger(cfg, log)
}

func newWithLogger(cfg *config.AppConfig, log *zap.Logger) (*App, error) {
	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	rec, err := newRecognizer(cfg.Recognizer, gen, log)
	if err != nil {
		return nil, err
	}
	var sum summarizer.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}

	idx := index.New(emb, memory.NewStorage(), log)
	session := service.NewSession(service.Components{
		Chunker:          ch,
		Index:            idx,
		Engine:           answer.NewEngine(gen, cfg.Index.TopK, log),
		Suggester:        suggest.New(gen, suggest.WithLogger(log)),
		Recognizer:       rec,
		Summarizer:       sum,
		SummarySentences: cfg.Summarizer.MaxSentences,
		Logger:           log,
	})
	log.Info("components ready",
		zap.String("embedder", emb.Name()),
		zap.String("generator", gen.Name()),
		zap.String("recognizer", cfg.Recognizer.Type),
	)
	return &App{
		Config:        cfg,
		Logger:        log,
		Loader:        loader.New(log),
		Session:       session,
		Conversations: conversation.NewStore(time.Duration(cfg.Server.ConversationTTLMins) * time.Minute),
	}, nil
}

// LoadAndBuild reads paths and builds the session from them.
func (a *App) LoadAndBuild(ctx context.Context, paths []string) (*service.Snapshot, error) {
	docs, err := a.Loader.Load(paths)
	if err != nil {
		return nil, err
	}
	return a.Session.Build(ctx, docs)
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Logger.Sync()
}

func newChunker(cfg config.ChunkerConfig) (domain.Chunker, error) {
	switch cfg.Type {
	case "character", "":
		return chunker.NewCharacterChunker(
			chunker.WithChunkSize(cfg.ChunkSize),
			chunker.WithOverlap(cfg.ChunkOverlap),
		), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Type)
	}
}

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	var emb embedding.Embedder
	switch cfg.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			AllowNoKey: cfg.OpenAI.AllowNoKey,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		emb = client
	case "gemini":
		gc := config.GeminiEmbedderConfig{}
		if cfg.Gemini != nil {
			gc = *cfg.Gemini
		}
		e, err := gemini.NewEmbedder(gemini.Config{APIKeyEnv: gc.APIKeyEnv, Model: gc.Model})
		if err != nil {
			return nil, fmt.Errorf("gemini embedder: %w", err)
		}
		emb = e
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
	// tf-idf is local and cheap; only remote embedders are cached.
	if cfg.Type != "tfidf" && cfg.Type != "" && cfg.Cache.Size > 0 {
		emb = cache.Wrap(emb, cfg.Cache.Size, time.Duration(cfg.Cache.TTLSecs)*time.Second)
	}
	return emb, nil
}

func newGenerator(cfg config.GeneratorConfig) (llm.Generator, error) {
	opts := llm.Options{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	if cfg.APIKeyEnv != "" {
		opts.APIKey = strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	}

	var gen llm.Generator
	switch cfg.Type {
	case "ollama", "":
		gen = llm.NewOllama(opts)
	case "openai":
		g, err := llm.NewOpenAI(opts)
		if err != nil {
			return nil, fmt.Errorf("%w (env %s)", err, cfg.APIKeyEnv)
		}
		gen = g
	case "gemini":
		g, err := llm.NewGemini(opts)
		if err != nil {
			return nil, fmt.Errorf("%w (env %s)", err, cfg.APIKeyEnv)
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
	if cfg.RatePerSec > 0 {
		gen = llm.WithRateLimit(gen, cfg.RatePerSec, cfg.Burst)
	}
	return gen, nil
}

func newRecognizer(cfg config.RecognizerConfig, gen llm.Generator, log *zap.Logger) (*resource.Lazy[ner.Recognizer], error) {
	var initFn ner.InitFunc
	var fetch ner.FetchFunc
	switch cfg.Type {
	case "rules", "":
		path := cfg.GazetteerPath
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			path = filepath.Join(dir, "gazetteer.yaml")
		}
		initFn = func(context.Context) (ner.Recognizer, error) {
			r, err := rules.New(path)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
		fetch = func(context.Context) error {
			log.Info("installing default gazetteer", zap.String("path", path))
			return rules.WriteDefaultGazetteer(path)
		}
	case "llm":
		initFn = generative.Init(gen, generative.DefaultWindow, generative.WithLogger(log))
		fetch = generative.Fetch(gen)
	default:
		return nil, fmt.Errorf("unknown recognizer: %s", cfg.Type)
	}
	return resource.NewLazy(func(ctx context.Context) (ner.Recognizer, error) {
		return ner.Load(ctx, initFn, fetch, log)
	}), nil
}
