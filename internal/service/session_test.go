package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justify/internal/answer"
	"justify/internal/chunker"
	"justify/internal/domain"
	"justify/internal/embedding/tfidf"
	"justify/internal/glossary"
	"justify/internal/index"
	"justify/internal/ner"
	"justify/internal/ner/rules"
	"justify/internal/resource"
	"justify/internal/suggest"
	"justify/internal/summarizer"
	"justify/internal/vectorstore/memory"
)

type fakeGenerator struct {
	prompts []string
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if strings.Contains(prompt, "FAQ-style questions") {
		return "1. Who enforces the Clean Air Act?\n2. What penalties apply?", nil
	}
	return "Answer based on the passages.", nil
}

func newSession(t *testing.T, gen *fakeGenerator, rec *resource.Lazy[ner.Recognizer]) *Session {
	t.Helper()
	if rec == nil {
		rec = resource.NewLazy(func(context.Context) (ner.Recognizer, error) {
			r, err := rules.New("")
			if err != nil {
				return nil, err
			}
			return r, nil
		})
	}
	return NewSession(Components{
		Chunker:          chunker.NewCharacterChunker(chunker.WithChunkSize(80), chunker.WithOverlap(10)),
		Index:            index.New(tfidf.NewEmbedder(), memory.NewStorage(), nil),
		Engine:           answer.NewEngine(gen, 4, nil),
		Suggester:        suggest.New(gen),
		Recognizer:       rec,
		Summarizer:       summarizer.NewFrequencySummarizer(),
		SummarySentences: 2,
	})
}

func docs() []domain.Document {
	page := 1
	return []domain.Document{
		{ID: "1", Source: "caa.pdf", Page: &page, Content: "Section 5 of the Clean Air Act, enforced by the Environmental Protection Agency since 1990. Violations carry civil penalties."},
		{ID: "2", Source: "notes.txt", Content: "States submit implementation plans. The agency reviews every plan."},
	}
}

func TestSession_AskBeforeBuild(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	_, _, err := s.Ask(context.Background(), "anything?", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
	_, ok := s.Snapshot()
	assert.False(t, ok)
}

func TestSession_BuildDerivesEverything(t *testing.T) {
	gen := &fakeGenerator{}
	s := newSession(t, gen, nil)
	snap, err := s.Build(context.Background(), docs())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Documents)
	assert.Greater(t, snap.Chunks, 2)
	assert.Equal(t, []string{"caa.pdf", "notes.txt"}, snap.Sources)
	assert.NotEmpty(t, snap.Summary)

	assert.GreaterOrEqual(t, len(snap.Suggestions), suggest.MinSuggestions)
	assert.LessOrEqual(t, len(snap.Suggestions), suggest.MaxSuggestions)

	require.Len(t, snap.Glossary, 2)
	assert.Contains(t, snap.Glossary[0].Terms[glossary.ActsLaws], "Clean Air Act")
	assert.Contains(t, snap.Glossary[0].Terms[glossary.Sections], "Section 5")

	got, ok := s.Snapshot()
	require.True(t, ok)
	assert.Same(t, snap, got)
}

func TestSession_TwoTurnConversation(t *testing.T) {
	gen := &fakeGenerator{}
	s := newSession(t, gen, nil)
	_, err := s.Build(context.Background(), docs())
	require.NoError(t, err)

	var mem []domain.Turn
	a1, src, err := s.Ask(context.Background(), "What does it say about penalties?", mem)
	require.NoError(t, err)
	require.NotEmpty(t, src)
	mem = append(mem, domain.Turn{Question: "What does it say about penalties?", Answer: a1})

	_, _, err = s.Ask(context.Background(), "And who enforces that?", mem)
	require.NoError(t, err)
	last := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, last, "What does it say about penalties?")
	assert.Contains(t, last, "And who enforces that?")
}

func TestSession_EmptyQuestion(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	_, _, err := s.Ask(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
}

func TestSession_InvalidDocumentLeavesSessionEmpty(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	_, err := s.Build(context.Background(), docs())
	require.NoError(t, err)

	_, err = s.Build(context.Background(), []domain.Document{{Source: "blank.txt", Content: "  "}})
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	_, ok := s.Snapshot()
	assert.False(t, ok)
	_, _, err = s.Ask(context.Background(), "penalties?", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestSession_RecognizerUnavailable(t *testing.T) {
	rec := resource.NewLazy(func(ctx context.Context) (ner.Recognizer, error) {
		return ner.Load(ctx,
			func(context.Context) (ner.Recognizer, error) { return nil, errors.New("model missing") },
			func(context.Context) error { return nil },
			nil,
		)
	})
	s := newSession(t, &fakeGenerator{}, rec)
	_, err := s.Build(context.Background(), docs())
	assert.ErrorIs(t, err, domain.ErrRecognizerUnavailable)
	_, _, err = s.Ask(context.Background(), "penalties?", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)
}

func TestSession_RebuildReplacesState(t *testing.T) {
	s := newSession(t, &fakeGenerator{}, nil)
	_, err := s.Build(context.Background(), docs())
	require.NoError(t, err)

	next := []domain.Document{{ID: "3", Source: "wetlands.txt", Content: "Wetland permits are issued by the Corps of Engineers."}}
	snap, err := s.Build(context.Background(), next)
	require.NoError(t, err)
	assert.Equal(t, []string{"wetlands.txt"}, snap.Sources)

	_, src, err := s.Ask(context.Background(), "penalties?", nil)
	require.NoError(t, err)
	for _, r := range src {
		assert.Equal(t, "wetlands.txt", r.Chunk.Source)
	}
}
