package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"justify/internal/domain"
)

func TestNewCharacterChunker(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewCharacterChunker()
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := NewCharacterChunker(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, c.Overlap(), c.ChunkSize())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := NewCharacterChunker(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})
}

func TestChunk_EmptyDocument(t *testing.T) {
	c := NewCharacterChunker()
	for _, content := range []string{"", "   \n\t"} {
		chunks, err := c.Chunk(domain.Document{ID: "d", Source: "empty.txt", Content: content})
		require.ErrorIs(t, err, domain.ErrInvalidDocument)
		assert.Nil(t, chunks)
	}
}

func TestChunk_ShortDocumentIsSingleChunk(t *testing.T) {
	c := NewCharacterChunker()
	page := 2
	chunks, err := c.Chunk(domain.Document{ID: "d", Source: "act.pdf", Page: &page, Content: "Short text."})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short text.", chunks[0].Text)
	assert.Equal(t, "d:0", chunks[0].ChunkID)
	assert.Equal(t, "act.pdf", chunks[0].Source)
	require.NotNil(t, chunks[0].Page)
	assert.Equal(t, 2, *chunks[0].Page)
}

func TestChunk_CoversEveryCharacter(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		length  int
	}{
		{name: "defaults exact multiple", size: 500, overlap: 50, length: 950},
		{name: "defaults with tail", size: 500, overlap: 50, length: 1234},
		{name: "tiny windows", size: 7, overlap: 3, length: 100},
		{name: "no overlap", size: 10, overlap: 0, length: 95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := makeText(tt.length)
			c := NewCharacterChunker(WithChunkSize(tt.size), WithOverlap(tt.overlap))
			chunks, err := c.Chunk(domain.Document{ID: "doc", Source: "s", Content: text})
			require.NoError(t, err)

			runes := []rune(text)
			covered := make([]bool, len(runes))
			for i, ch := range chunks {
				n := utf8.RuneCountInString(ch.Text)
				assert.LessOrEqual(t, n, tt.size)
				assert.Equal(t, i, ch.Index)
				assert.Equal(t, string(runes[ch.Start:ch.Start+n]), ch.Text)
				for j := ch.Start; j < ch.Start+n; j++ {
					covered[j] = true
				}
				if i > 0 {
					prev := chunks[i-1]
					assert.Equal(t, tt.overlap, prev.Start+utf8.RuneCountInString(prev.Text)-ch.Start)
				}
			}
			for i, ok := range covered {
				require.Truef(t, ok, "character %d not covered", i)
			}
			last := chunks[len(chunks)-1]
			assert.Equal(t, len(runes), last.Start+utf8.RuneCountInString(last.Text))
		})
	}
}

func TestChunk_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("धारा ५ ", 40)
	c := NewCharacterChunker(WithChunkSize(30), WithOverlap(5))
	chunks, err := c.Chunk(domain.Document{ID: "hi", Content: text})
	require.NoError(t, err)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch.Text))
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Text), 30)
	}
}

func makeText(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteByte(byte('a' + i%26))
	}
	return sb.String()
}
