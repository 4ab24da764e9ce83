package conversation

import (
	"fmt"
	"io"
	"strings"

	"justify/internal/domain"
	"justify/internal/textutil"
)

const (
	// MaxSources is how many supporting passages are shown with an answer.
	MaxSources   = 3
	snippetChars = 300
)

// Source is a display-ready supporting passage.
type Source struct {
	Source  string  `json:"source"`
	Page    string  `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Sources converts the top results into display form. Snippets are cut
// at 300 characters with an ellipsis.
func Sources(results []domain.SearchResult) []Source {
	n := len(results)
	if n > MaxSources {
		n = MaxSources
	}
	out := make([]Source, 0, n)
	for _, r := range results[:n] {
		source := r.Chunk.Source
		if source == "" {
			source = "Unknown"
		}
		snippet := textutil.CollapseSpace(r.Chunk.Text)
		if cut := textutil.Truncate(snippet, snippetChars); cut != snippet {
			snippet = cut + "..."
		}
		out = append(out, Source{
			Source:  source,
			Page:    domain.PageLabel(r.Chunk.Page),
			Snippet: snippet,
			Score:   r.Score,
		})
	}
	return out
}

// WriteTranscript writes the conversation as alternating USER and ASSISTANT
// blocks separated by blank lines.
func WriteTranscript(w io.Writer, turns []domain.Turn) error {
	blocks := make([]string, 0, 2*len(turns))
	for _, t := range turns {
		blocks = append(blocks, "USER: "+t.Question, "ASSISTANT: "+t.Answer)
	}
	_, err := io.WriteString(w, strings.Join(blocks, "\n\n"))
	return err
}

// FormatSources renders sources as a plain text list.
func FormatSources(sources []Source) string {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "%d. %s (page %s): %s\n", i+1, s.Source, s.Page, s.Snippet)
	}
	return b.String()
}
