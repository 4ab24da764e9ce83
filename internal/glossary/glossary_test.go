package glossary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justify/internal/domain"
	"justify/internal/ner"
	"justify/internal/ner/generative"
	"justify/internal/ner/rules"
)

type stubRecognizer struct {
	entities map[string][]ner.Entity
	err      error
}

func (s stubRecognizer) Name() string { return "stub" }

func (s stubRecognizer) Recognize(_ context.Context, text string) ([]ner.Entity, error) {
	return s.entities[text], s.err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		entity ner.Entity
		want   string
		ok     bool
	}{
		{"law", ner.Entity{Text: "Clean Air Act", Label: ner.LabelLaw}, ActsLaws, true},
		{"org", ner.Entity{Text: "EPA", Label: ner.LabelOrg}, Authorities, true},
		{"gpe", ner.Entity{Text: "California", Label: ner.LabelGPE}, Authorities, true},
		{"date", ner.Entity{Text: "1990", Label: ner.LabelDate}, Dates, true},
		{"date label beats section pattern", ner.Entity{Text: "Section 5", Label: ner.LabelDate}, Dates, true},
		{"section", ner.Entity{Text: "Section 12", Label: ner.LabelCardinal, HeadPOS: ner.POSNum}, Sections, true},
		{"sec abbreviation", ner.Entity{Text: "sec. 4", Label: ner.LabelMisc}, Sections, true},
		{"section beats concept", ner.Entity{Text: "Section 3", Label: ner.LabelMisc, HeadPOS: ner.POSProperNoun}, Sections, true},
		{"concept", ner.Entity{Text: "Administrator", Label: ner.LabelMisc, HeadPOS: ner.POSProperNoun}, Concepts, true},
		{"noun concept", ner.Entity{Text: "point source", Label: ner.LabelPerson, HeadPOS: ner.POSNoun}, Concepts, true},
		{"too long for concept", ner.Entity{Text: "one two three four five", Label: ner.LabelMisc, HeadPOS: ner.POSNoun}, "", false},
		{"wrong pos", ner.Entity{Text: "quickly", Label: ner.LabelMisc, HeadPOS: ner.POSOther}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.entity)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_CleanAirActScenario(t *testing.T) {
	rec, err := rules.New("")
	require.NoError(t, err)
	docs := []domain.Document{{
		ID:      "d1",
		Source:  "caa.txt",
		Content: "Section 5 of the Clean Air Act, enforced by the Environmental Protection Agency since 1990.",
	}}

	entries, err := NewExtractor(rec, nil).Extract(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "caa.txt", e.Source)
	assert.Contains(t, e.Terms[ActsLaws], "Clean Air Act")
	assert.Contains(t, e.Terms[Authorities], "Environmental Protection Agency")
	assert.Contains(t, e.Terms[Dates], "1990")
	assert.Contains(t, e.Terms[Sections], "Section 5")
}

func TestExtract_NoEntitiesStillEmitsEntry(t *testing.T) {
	rec, err := rules.New("")
	require.NoError(t, err)
	docs := []domain.Document{{Source: "blank.txt", Content: "nothing of note here."}}

	entries, err := NewExtractor(rec, nil).Extract(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Empty())
	for _, c := range Categories {
		terms, ok := entries[0].Terms[c]
		assert.True(t, ok, c)
		assert.Empty(t, terms, c)
	}
}

type proseGenerator struct{ reply string }

func (proseGenerator) Name() string { return "prose" }

func (g proseGenerator) Generate(context.Context, string) (string, error) { return g.reply, nil }

func TestExtract_LLMProseReplyStillEmitsEntry(t *testing.T) {
	rec := generative.New(proseGenerator{reply: "No named entities were found in this text."}, 0)
	docs := []domain.Document{{Source: "minutes.txt", Content: "The committee met on a quiet afternoon."}}

	entries, err := NewExtractor(rec, nil).Extract(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "minutes.txt", entries[0].Source)
	assert.True(t, entries[0].Empty())
}

func TestExtract_GroupsBySourceAndDedups(t *testing.T) {
	p1, p2 := 1, 2
	docs := []domain.Document{
		{Source: "act.pdf", Page: &p1, Content: "page one"},
		{Source: "rules.txt", Content: "other"},
		{Source: "act.pdf", Page: &p2, Content: "page two"},
	}
	rec := stubRecognizer{entities: map[string][]ner.Entity{
		"page one": {
			{Text: "Clean Air Act", Label: ner.LabelLaw},
			{Text: " Clean   Air Act ", Label: ner.LabelLaw},
			{Text: "clean air act", Label: ner.LabelLaw},
		},
		"page two": {
			{Text: "Clean Air Act", Label: ner.LabelLaw},
			{Text: "1990", Label: ner.LabelDate},
		},
	}}

	entries, err := NewExtractor(rec, nil).Extract(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "act.pdf", entries[0].Source)
	assert.Equal(t, "rules.txt", entries[1].Source)
	assert.ElementsMatch(t, []string{"Clean Air Act", "clean air act"}, entries[0].Terms[ActsLaws])
	assert.Equal(t, []string{"1990"}, entries[0].Terms[Dates])
	assert.True(t, entries[1].Empty())
}

func TestExtract_Idempotent(t *testing.T) {
	rec, err := rules.New("")
	require.NoError(t, err)
	docs := []domain.Document{
		{Source: "a.txt", Content: "The Federal Trade Commission enforces the Sherman Act under Section 2 since July 1890."},
		{Source: "b.txt", Content: "Appeals go to the Supreme Court of the United States."},
	}
	x := NewExtractor(rec, nil)
	first, err := x.Extract(context.Background(), docs)
	require.NoError(t, err)
	second, err := x.Extract(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	for i := range first {
		for _, c := range Categories {
			assert.ElementsMatch(t, first[i].Terms[c], second[i].Terms[c])
		}
	}
}

func TestExtract_RecognizerError(t *testing.T) {
	boom := errors.New("recognizer crashed")
	_, err := NewExtractor(stubRecognizer{err: boom}, nil).Extract(context.Background(), []domain.Document{{Source: "a", Content: "x"}})
	assert.ErrorIs(t, err, boom)
}
