// Package service wires chunking, indexing, answering, suggestions and the
// glossary into the single active document session.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"justify/internal/answer"
	"justify/internal/domain"
	"justify/internal/glossary"
	"justify/internal/index"
	"justify/internal/ner"
	"justify/internal/resource"
	"justify/internal/suggest"
	"justify/internal/summarizer"
)

// Snapshot is everything derived from one upload set.
type Snapshot struct {
	Documents   int              `json:"documents"`
	Chunks      int              `json:"chunks"`
	Sources     []string         `json:"sources"`
	Summary     string           `json:"summary"`
	Suggestions []string         `json:"suggestions"`
	Glossary    []glossary.Entry `json:"glossary"`
}

// Components are the collaborators a Session is built from.
type Components struct {
	Chunker          domain.Chunker
	Index            *index.Index
	Engine           *answer.Engine
	Suggester        *suggest.Generator
	Recognizer       *resource.Lazy[ner.Recognizer]
	Summarizer       summarizer.Summarizer
	SummarySentences int
	Logger           *zap.Logger
}

// Session serves one active document collection. Build replaces it
// wholesale; Ask is answered against whatever Build last produced.
type Session struct {
	chunker          domain.Chunker
	index            *index.Index
	engine           *answer.Engine
	suggester        *suggest.Generator
	recognizer       *resource.Lazy[ner.Recognizer]
	summarizer       summarizer.Summarizer
	summarySentences int
	log              *zap.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
}

func NewSession(c Components) *Session {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		chunker:          c.Chunker,
		index:            c.Index,
		engine:           c.Engine,
		suggester:        c.Suggester,
		recognizer:       c.Recognizer,
		summarizer:       c.Summarizer,
		summarySentences: c.SummarySentences,
		log:              log.Named("session"),
	}
}

// Build discards all state derived from the previous upload set, then
// chunks and indexes docs and derives suggestions, glossary and summary.
// On failure the session is left empty.
func (s *Session) Build(ctx context.Context, docs []domain.Document) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot = nil
	snap, err := s.build(ctx, docs)
	if err != nil {
		if rerr := s.index.Reset(); rerr != nil {
			s.log.Error("reset index after failed build", zap.Error(rerr))
		}
		return nil, err
	}
	s.snapshot = snap
	return snap, nil
}

func (s *Session) build(ctx context.Context, docs []domain.Document) (*Snapshot, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("no documents: %w", domain.ErrInvalidDocument)
	}
	var chunks []domain.Chunk
	var sources []string
	seen := make(map[string]bool)
	var all strings.Builder
	for _, d := range docs {
		cs, err := s.chunker.Chunk(d)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", d.Provenance(), err)
		}
		chunks = append(chunks, cs...)
		if !seen[d.Source] {
			seen[d.Source] = true
			sources = append(sources, d.Source)
		}
		all.WriteString(d.Content)
		all.WriteString("\n")
	}
	if err := s.index.Build(ctx, chunks); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	snap := &Snapshot{Documents: len(docs), Chunks: len(chunks), Sources: sources}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		qs, err := s.suggester.Generate(gctx, chunks)
		if err != nil {
			return err
		}
		snap.Suggestions = qs
		return nil
	})
	g.Go(func() error {
		rec, err := s.recognizer.Get(gctx)
		if err != nil {
			return err
		}
		entries, err := glossary.NewExtractor(rec, s.log).Extract(gctx, docs)
		if err != nil {
			return fmt.Errorf("glossary: %w", err)
		}
		snap.Glossary = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(all.String(), s.summarySentences)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	snap.Summary = summary
	s.log.Info("session built",
		zap.Int("documents", snap.Documents),
		zap.Int("chunks", snap.Chunks),
		zap.Int("suggestions", len(snap.Suggestions)),
		zap.Int("glossary_entries", len(snap.Glossary)),
	)
	return snap, nil
}

// Ask answers question given the conversation so far. The caller appends
// the resulting turn to its memory.
func (s *Session) Ask(ctx context.Context, question string, memory []domain.Turn) (string, []domain.SearchResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", nil, domain.ErrEmptyQuestion
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return "", nil, domain.ErrEmptyIndex
	}
	return s.engine.Answer(ctx, question, memory, s.index)
}

// Snapshot returns the state derived from the current upload set, if any.
func (s *Session) Snapshot() (*Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.snapshot != nil
}
