package embedding

import (
	"context"
	"math"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus; the
// index calls Prepare with every chunk text before embedding them.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Normalize returns a unit-length copy of vec and leaves vec unmodified.
// A zero vector yields a zero copy.
func Normalize(vec []float64) []float64 {
	out := make([]float64, len(vec))
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		copy(out, vec)
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

// IsZero reports whether every component of vec is zero.
func IsZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
