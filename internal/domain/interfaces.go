package domain

import "strconv"

// Document is one loaded unit of source text, a whole file or a single PDF page.
type Document struct {
	ID      string
	Source  string
	Page    *int
	Content string
}

// Provenance renders the source name with its page number when known.
func (d Document) Provenance() string {
	return provenance(d.Source, d.Page)
}

// Chunk is a bounded slice of a document's text used for retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Page       *int
	Index      int
	// Start is the rune offset of Text inside the parent document.
	Start int
	Text  string
}

// Provenance renders the source name with its page number when known.
func (c Chunk) Provenance() string {
	return provenance(c.Source, c.Page)
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Turn is one answered question of a conversation.
type Turn struct {
	Question string
	Answer   string
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// PageLabel returns the page number as text, or "N/A" when the document has no pages.
func PageLabel(page *int) string {
	if page == nil {
		return "N/A"
	}
	return strconv.Itoa(*page)
}

func provenance(source string, page *int) string {
	if source == "" {
		source = "Unknown"
	}
	if page == nil {
		return source
	}
	return source + " (page " + strconv.Itoa(*page) + ")"
}
