// Package cache memoises embedding vectors in an expiring LRU.
package cache

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"justify/internal/embedding"
)

var _ embedding.Embedder = (*Embedder)(nil)

const (
	DefaultSize = 4096
	DefaultTTL  = 30 * time.Minute
)

// Embedder wraps another embedder and caches its vectors by text.
// Prepare purges the cache since a new corpus may change every vector.
// Callers own the slices Embed returns; the cache keeps its own copies.
type Embedder struct {
	next  embedding.Embedder
	cache *expirable.LRU[string, []float64]
}

// Wrap decorates next with a cache of the given size and ttl. Non-positive
// values fall back to the defaults.
func Wrap(next embedding.Embedder, size int, ttl time.Duration) *Embedder {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Embedder{
		next:  next,
		cache: expirable.NewLRU[string, []float64](size, nil, ttl),
	}
}

func (e *Embedder) Name() string { return e.next.Name() }

func (e *Embedder) Prepare(ctx context.Context, corpus []string) error {
	e.cache.Purge()
	return e.next.Prepare(ctx, corpus)
}

func (e *Embedder) Dimension() int { return e.next.Dimension() }

func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := e.cache.Get(text); ok {
		return slices.Clone(vec), nil
	}
	vec, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, slices.Clone(vec))
	return vec, nil
}

// Len reports the number of cached vectors.
func (e *Embedder) Len() int { return e.cache.Len() }
