// Package conversation keeps conversation memories and renders them for export.
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"justify/internal/domain"
)

// ErrNotFound is returned for unknown or expired conversation ids.
var ErrNotFound = errors.New("conversation not found")

// Store holds conversation memories keyed by id. Idle conversations expire.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewStore creates a store whose conversations expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &Store{cache: cache.New(ttl, 10*time.Minute)}
}

// Create starts an empty conversation and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.cache.Set(id, []domain.Turn{}, cache.DefaultExpiration)
	return id
}

// Turns returns a copy of the conversation memory.
func (s *Store) Turns(id string) ([]domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]domain.Turn(nil), turns...), nil
}

// Append adds a turn to the end of the conversation.
func (s *Store) Append(id string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, ok := s.get(id)
	if !ok {
		return ErrNotFound
	}
	next := make([]domain.Turn, len(turns), len(turns)+1)
	copy(next, turns)
	s.cache.Set(id, append(next, turn), cache.DefaultExpiration)
	return nil
}

func (s *Store) Delete(id string) {
	s.cache.Delete(id)
}

// Reset drops every conversation, e.g. after the document set changes.
func (s *Store) Reset() {
	s.cache.Flush()
}

func (s *Store) get(id string) ([]domain.Turn, bool) {
	x, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	return x.([]domain.Turn), true
}
