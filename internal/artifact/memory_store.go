package artifact

import (
	"context"
	"sync"
)

// InMemoryStore is an in-memory implementation of Store.
// This is intended for testing. Production should use FileStore or PostgresStore.
type InMemoryStore struct {
	mu     sync.RWMutex
	bundle *Bundle
	saves  int
}

// NewInMemoryStore creates a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Load returns the last saved bundle.
func (s *InMemoryStore) Load(_ context.Context) (*Bundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.bundle == nil {
		return nil, ErrNotFound
	}
	cpy := *s.bundle
	return &cpy, nil
}

// Save replaces the stored bundle.
func (s *InMemoryStore) Save(_ context.Context, b *Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cpy := *b
	s.bundle = &cpy
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *InMemoryStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
