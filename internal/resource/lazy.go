// Package resource holds process-wide lazily constructed heavy components.
package resource

import (
	"context"
	"sync"
)

// Lazy constructs a value at most once and shares it afterwards. A failed
// construction is not remembered, so the next Get tries again.
type Lazy[T any] struct {
	mu    sync.Mutex
	init  func(ctx context.Context) (T, error)
	value T
	ready bool
}

func NewLazy[T any](init func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{init: init}
}

// Get returns the shared value, constructing it on first use.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ready {
		return l.value, nil
	}
	v, err := l.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	l.value = v
	l.ready = true
	return v, nil
}

// Ready reports whether the value has been constructed.
func (l *Lazy[T]) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ready
}
