// Package generative recognises entities by asking a text generator for a
// JSON entity list.
package generative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"justify/internal/domain"
	"justify/internal/llm"
	"justify/internal/ner"
	"justify/internal/textutil"
)

// DefaultWindow is the largest slice of text sent in a single request.
const DefaultWindow = 4000

var _ ner.Recognizer = (*Recognizer)(nil)

// Pinger is implemented by generators that can check model availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Puller is implemented by generators that can download their model.
type Puller interface {
	Pull(ctx context.Context) error
}

type Recognizer struct {
	gen    llm.Generator
	window int
	log    *zap.Logger
}

type Option func(*Recognizer)

func WithLogger(log *zap.Logger) Option {
	return func(r *Recognizer) { r.log = log }
}

func New(gen llm.Generator, window int, opts ...Option) *Recognizer {
	if window <= 0 {
		window = DefaultWindow
	}
	r := &Recognizer{gen: gen, window: window, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.Named("ner.llm")
	return r
}

// Init returns a recognizer once the generator's model answers a ping.
func Init(gen llm.Generator, window int, opts ...Option) ner.InitFunc {
	return func(ctx context.Context) (ner.Recognizer, error) {
		if p, ok := gen.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return nil, fmt.Errorf("ping %s: %w", gen.Name(), err)
			}
		}
		return New(gen, window, opts...), nil
	}
}

// Fetch pulls the generator's model when it supports pulling.
func Fetch(gen llm.Generator) ner.FetchFunc {
	return func(ctx context.Context) error {
		p, ok := gen.(Puller)
		if !ok {
			return fmt.Errorf("%s cannot download models", gen.Name())
		}
		return p.Pull(ctx)
	}
}

func (r *Recognizer) Name() string { return "llm" }

// Recognize sends text to the generator one window at a time. A reply that
// is not a JSON entity list yields no entities for its window.
func (r *Recognizer) Recognize(ctx context.Context, text string) ([]ner.Entity, error) {
	var out []ner.Entity
	for i, part := range windows(text, r.window) {
		raw, err := r.gen.Generate(ctx, prompt(part))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, domain.ErrGeneratorFailure) {
				return nil, err
			}
			return nil, domain.GeneratorFailure(r.gen.Name(), err)
		}
		ents, err := parseEntities(raw)
		if err != nil {
			r.log.Warn("discarding unparseable entity reply",
				zap.Int("window", i),
				zap.Int("reply_len", len(raw)),
				zap.Error(err),
			)
			continue
		}
		out = append(out, ents...)
	}
	return out, nil
}

// windows splits text into trimmed parts of at most size runes. A cut falls
// on the last whitespace inside the window so words are never split, unless
// the window holds no whitespace at all.
func windows(text string, size int) []string {
	runes := []rune(text)
	var parts []string
	start := 0
	for start < len(runes) {
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
		if start >= len(runes) {
			break
		}
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if !unicode.IsSpace(runes[end]) {
			cut := end
			for cut > start && !unicode.IsSpace(runes[cut-1]) {
				cut--
			}
			if cut > start {
				end = cut
			}
		}
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, part)
		}
		start = end
	}
	return parts
}

func prompt(text string) string {
	return fmt.Sprintf(`You are a named entity recognition assistant for legal documents.
List every named entity in the text below.
- Return a JSON array of objects only. No extra text.
- Each object has "text" (exact span), "label" and "pos".
- "label" is one of LAW, ORG, GPE, DATE, CARDINAL, PERSON, MISC.
- "pos" is the part of speech of the entity's head word: PROPN, NOUN, NUM or OTHER.

TEXT:
%s`, text)
}

var knownLabels = map[string]bool{
	ner.LabelLaw: true, ner.LabelOrg: true, ner.LabelGPE: true, ner.LabelDate: true,
	ner.LabelCardinal: true, ner.LabelPerson: true, ner.LabelMisc: true,
}

var knownPOS = map[string]bool{
	ner.POSProperNoun: true, ner.POSNoun: true, ner.POSNum: true, ner.POSOther: true,
}

func parseEntities(output string) ([]ner.Entity, error) {
	clean := strings.TrimSpace(output)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var raw []ner.Entity
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("parse entities: %w", err)
	}
	out := make([]ner.Entity, 0, len(raw))
	for _, e := range raw {
		e.Text = textutil.CollapseSpace(e.Text)
		if e.Text == "" {
			continue
		}
		e.Label = strings.ToUpper(strings.TrimSpace(e.Label))
		if !knownLabels[e.Label] {
			e.Label = ner.LabelMisc
		}
		e.HeadPOS = strings.ToUpper(strings.TrimSpace(e.HeadPOS))
		if !knownPOS[e.HeadPOS] {
			e.HeadPOS = ner.POSOther
		}
		out = append(out, e)
	}
	return out, nil
}
