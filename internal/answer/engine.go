// Package answer produces grounded answers from retrieved passages and the
// conversation memory.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"justify/internal/domain"
	"justify/internal/llm"
)

// Retriever is the part of the index the engine depends on.
type Retriever interface {
	Query(ctx context.Context, question string, topK int) ([]domain.SearchResult, error)
}

// Engine answers one question per call. It never mutates the memory it is given.
type Engine struct {
	gen  llm.Generator
	topK int
	log  *zap.Logger
}

func NewEngine(gen llm.Generator, topK int, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{gen: gen, topK: topK, log: log.Named("answer")}
}

// Answer retrieves supporting passages for question, builds a prompt with the
// full memory and calls the generator once. The output is returned verbatim.
func (e *Engine) Answer(ctx context.Context, question string, memory []domain.Turn, idx Retriever) (string, []domain.SearchResult, error) {
	passages, err := idx.Query(ctx, question, e.topK)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve: %w", err)
	}
	prompt := NewPromptBuilder(question, memory, passages).Build()
	e.log.Debug("generating answer",
		zap.Int("passages", len(passages)),
		zap.Int("turns", len(memory)),
		zap.Int("prompt_chars", len(prompt)),
	)
	out, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		return "", passages, err
	}
	if strings.TrimSpace(out) == "" {
		return "", passages, domain.GeneratorFailure(e.gen.Name(), fmt.Errorf("empty answer"))
	}
	return out, passages, nil
}
