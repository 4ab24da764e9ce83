package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize_KeepsOriginalOrder(t *testing.T) {
	text := "Penalties apply to emission violations. The weather was nice. " +
		"Emission penalties are enforced by the agency. Lunch was served."
	s := NewFrequencySummarizer()
	got, err := s.Summarize(text, 2)
	require.NoError(t, err)
	assert.Equal(t, "Penalties apply to emission violations. Emission penalties are enforced by the agency.", got)
}

func TestSummarize_ShortText(t *testing.T) {
	s := NewFrequencySummarizer()
	got, err := s.Summarize("No terminal punctuation here", 0)
	require.NoError(t, err)
	assert.Equal(t, "No terminal punctuation here", got)

	got, err = s.Summarize("   ", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarize_DefaultBudget(t *testing.T) {
	text := strings.Repeat("Air quality standards matter. ", 8)
	got, err := NewFrequencySummarizer().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxSentences, strings.Count(got, "."))
}
