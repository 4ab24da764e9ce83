// Package suggest derives a short list of starter questions from document chunks.
package suggest

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"justify/internal/domain"
	"justify/internal/llm"
	"justify/internal/textutil"
)

const (
	ContextChars    = 1500
	PerChunk        = 5
	MaxWords        = 12
	MinSuggestions  = 8
	MaxSuggestions  = 10
	fallbackCutset  = "-•*0123456789. "
	promptQuestions = 5
)

// Fallback questions pad a short pool, in this order.
var Fallback = []string{
	"What is the main purpose of this Act?",
	"Who enforces this Act?",
	"When was it enacted?",
	"Who benefits from it?",
	"What penalties are included?",
	"What rights are guaranteed?",
	"Which authority oversees compliance?",
	"What is the scope of the law?",
	"Are there any exceptions?",
	"What is the definition of key terms?",
}

var numberedRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*(.+)`)

// Generator asks a text generator for FAQ-style questions per chunk.
type Generator struct {
	gen llm.Generator
	log *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Generator)

// WithRand sets the source used to sample an oversized pool.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

func WithLogger(log *zap.Logger) Option {
	return func(g *Generator) { g.log = log }
}

func New(gen llm.Generator, opts ...Option) *Generator {
	g := &Generator{gen: gen, log: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	g.log = g.log.Named("suggest")
	return g
}

// Generate returns between MinSuggestions and MaxSuggestions questions, each
// ending in "?" with at most MaxWords words. A failing generator call only
// costs the chunk it was made for; a cancelled context aborts the run.
func (g *Generator) Generate(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	var pool []string
	for i, ch := range chunks {
		out, err := g.gen.Generate(ctx, Prompt(ch.Text))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("suggestions: %w", ctxErr)
			}
			g.log.Warn("suggestion generation failed for chunk",
				zap.Int("chunk", i),
				zap.String("source", ch.Provenance()),
				zap.Error(err),
			)
			continue
		}
		kept := Filter(Parse(out))
		if len(kept) > PerChunk {
			kept = kept[:PerChunk]
		}
		g.log.Debug("parsed suggestions", zap.Int("chunk", i), zap.Int("kept", len(kept)))
		pool = append(pool, kept...)
	}
	return g.normalize(pool), nil
}

// Prompt builds the per-chunk request from the first ContextChars runes of text.
func Prompt(text string) string {
	return fmt.Sprintf(`You are given part of a legal/official/government document.

Task: Generate exactly %d unique FAQ-style questions based only on this text.

Rules:
- Each question must be under %d words.
- Cover purpose, scope, authority, penalties, rights, dates, definitions.
- Output format must be ONLY a numbered list (1-%d). No extra text.

Text:
%s

Questions:
`, promptQuestions, MaxWords, promptQuestions, textutil.Truncate(text, ContextChars))
}

// Parse extracts candidate questions. Numbered lines win; without any, every
// non-blank line is a candidate once bullets and numbering are stripped.
func Parse(raw string) []string {
	raw = strings.TrimSpace(raw)
	var out []string
	for _, m := range numberedRe.FindAllStringSubmatch(raw, -1) {
		out = append(out, m[1])
	}
	if len(out) > 0 {
		return out
	}
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, strings.Trim(line, fallbackCutset))
	}
	return out
}

// Filter keeps trimmed candidates that end in "?" and have at most MaxWords words.
func Filter(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if !Valid(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Valid reports whether q is an acceptable suggestion.
func Valid(q string) bool {
	return strings.HasSuffix(q, "?") && textutil.WordCount(q) <= MaxWords
}

func (g *Generator) normalize(pool []string) []string {
	switch {
	case len(pool) > MaxSuggestions:
		g.mu.Lock()
		perm := g.rng.Perm(len(pool))
		g.mu.Unlock()
		sample := make([]string, MaxSuggestions)
		for i := range sample {
			sample[i] = pool[perm[i]]
		}
		return sample
	case len(pool) < MinSuggestions:
		return append(pool, Fallback[:MinSuggestions-len(pool)]...)
	default:
		return pool
	}
}
