package suggest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justify/internal/domain"
	"justify/internal/textutil"
)

type scriptedGenerator struct {
	outputs []string
	errs    []error
	prompts []string
}

func (g *scriptedGenerator) Name() string { return "scripted" }

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.outputs) {
		return g.outputs[i], nil
	}
	return "", nil
}

func chunksN(n int) []domain.Chunk {
	out := make([]domain.Chunk, n)
	for i := range out {
		out[i] = domain.Chunk{ChunkID: fmt.Sprintf("d:%d", i), Source: "act.pdf", Text: "The Act establishes penalties."}
	}
	return out
}

func assertValidSet(t *testing.T, got []string) {
	t.Helper()
	assert.GreaterOrEqual(t, len(got), MinSuggestions)
	assert.LessOrEqual(t, len(got), MaxSuggestions)
	for _, q := range got {
		assert.True(t, strings.HasSuffix(q, "?"), q)
		assert.LessOrEqual(t, textutil.WordCount(q), MaxWords, q)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "numbered with dots and parens",
			raw:  "1. Who enforces the Act?\n2) What are the penalties?\nnoise",
			want: []string{"Who enforces the Act?", "What are the penalties?"},
		},
		{
			name: "bullets fall back to every line",
			raw:  "- Who enforces the Act?\n\n• When was it passed?\n* Scope",
			want: []string{"Who enforces the Act?", "When was it passed?", "Scope"},
		},
		{
			name: "empty output",
			raw:  "   \n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestFilter(t *testing.T) {
	got := Filter([]string{
		"Who enforces the Act?",
		"This is a statement.",
		"Why does this extremely long question keep going on and on past twelve words?",
		"  What rights are guaranteed?  ",
	})
	assert.Equal(t, []string{"Who enforces the Act?", "What rights are guaranteed?"}, got)
}

func TestPrompt_TruncatesContext(t *testing.T) {
	long := strings.Repeat("é", ContextChars+200)
	p := Prompt(long)
	assert.Contains(t, p, strings.Repeat("é", ContextChars))
	assert.NotContains(t, p, strings.Repeat("é", ContextChars+1))
	assert.Contains(t, p, "exactly 5")
}

func TestGenerate_PadsWithFallback(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"1. Who enforces the Act?\n2. Not a question\n3. When was it enacted in full?"}}
	got, err := New(gen).Generate(context.Background(), chunksN(1))
	require.NoError(t, err)
	require.Len(t, got, MinSuggestions)
	assert.Equal(t, "Who enforces the Act?", got[0])
	assert.Equal(t, "When was it enacted in full?", got[1])
	assert.Equal(t, Fallback[:6], got[2:])
	assertValidSet(t, got)
}

func TestGenerate_GarbageOutputStillValid(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{"", "lorem ipsum", "!!!\n???", "12345"}}
	got, err := New(gen).Generate(context.Background(), chunksN(4))
	require.NoError(t, err)
	assert.Equal(t, Fallback[:MinSuggestions-1], got[1:])
	assertValidSet(t, got)
}

func TestGenerate_KeepsAtMostFivePerChunk(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&b, "%d. Question number %d?\n", i, i)
	}
	gen := &scriptedGenerator{outputs: []string{b.String()}}
	got, err := New(gen).Generate(context.Background(), chunksN(1))
	require.NoError(t, err)
	assert.Equal(t, "Question number 5?", got[4])
	assert.Equal(t, Fallback[0], got[5])
}

func TestGenerate_SamplesOversizedPool(t *testing.T) {
	outputs := make([]string, 4)
	for c := range outputs {
		var b strings.Builder
		for i := 1; i <= 5; i++ {
			fmt.Fprintf(&b, "%d. Chunk %d question %d?\n", i, c, i)
		}
		outputs[c] = b.String()
	}
	gen := &scriptedGenerator{outputs: outputs}
	got, err := New(gen, WithRand(rand.New(rand.NewSource(7)))).Generate(context.Background(), chunksN(4))
	require.NoError(t, err)
	require.Len(t, got, MaxSuggestions)
	assertValidSet(t, got)

	seen := map[string]bool{}
	for _, q := range got {
		assert.False(t, seen[q], "duplicate %q", q)
		seen[q] = true
		assert.True(t, strings.HasPrefix(q, "Chunk "), q)
	}
}

func TestGenerate_BetweenBoundsIsUntouched(t *testing.T) {
	gen := &scriptedGenerator{outputs: []string{
		"1. A one?\n2. A two?\n3. A three?\n4. A four?\n5. A five?",
		"1. B one?\n2. B two?\n3. B three?\n4. B four?",
	}}
	got, err := New(gen).Generate(context.Background(), chunksN(2))
	require.NoError(t, err)
	assert.Len(t, got, 9)
	assert.Equal(t, "A one?", got[0])
	assert.Equal(t, "B four?", got[8])
}

func TestGenerate_ChunkErrorIsSkipped(t *testing.T) {
	gen := &scriptedGenerator{
		outputs: []string{"", "1. Who enforces the Act?"},
		errs:    []error{errors.New("timeout")},
	}
	got, err := New(gen).Generate(context.Background(), chunksN(2))
	require.NoError(t, err)
	assert.Equal(t, "Who enforces the Act?", got[0])
	assertValidSet(t, got)
}

func TestGenerate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedGenerator{errs: []error{context.Canceled}}
	_, err := New(gen).Generate(ctx, chunksN(3))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, gen.prompts, 1)
}

func TestGenerate_NoChunks(t *testing.T) {
	got, err := New(&scriptedGenerator{}).Generate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Fallback[:MinSuggestions], got)
}
