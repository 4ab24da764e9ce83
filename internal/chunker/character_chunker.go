package chunker

import (
	"fmt"
	"strconv"
	"strings"

	"justify/internal/domain"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// CharacterChunker splits text into fixed-size character windows with overlap.
type CharacterChunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*CharacterChunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *CharacterChunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the number of characters shared by consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(c *CharacterChunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewCharacterChunker creates a chunker, 500 characters with 50 overlap by default.
func NewCharacterChunker(opts ...Option) *CharacterChunker {
	c := &CharacterChunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	// overlap must stay below the chunk size or the window never advances
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 10
	}
	return c
}

// ChunkSize returns the configured maximum chunk length.
func (c *CharacterChunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *CharacterChunker) Overlap() int { return c.overlap }

// Chunk splits the document. The last chunk may be shorter than the chunk size.
func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, fmt.Errorf("%w: %s has no text", domain.ErrInvalidDocument, document.Provenance())
	}
	runes := []rune(document.Content)
	total := len(runes)
	step := c.chunkSize - c.overlap

	chunks := make([]domain.Chunk, 0, total/step+1)
	idx := 0
	for start := 0; start < total; start += step {
		end := start + c.chunkSize
		if end > total {
			end = total
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Source:     document.Source,
			Page:       document.Page,
			Index:      idx,
			Start:      start,
			Text:       string(runes[start:end]),
		})
		if end == total {
			break
		}
		idx++
	}
	return chunks, nil
}
