package store

import (
	"context"
	"errors"
	"sync"
)

var errWriteFailed = errors.New("store: write failed")

// MemoryStore is an in-process PersistentStore used in tests and as a
// fallback when no durable backend is available.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	// FailWrites makes Set/Remove return an error, for exercising the
	// best-effort durability paths.
	FailWrites bool
}

var _ PersistentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errWriteFailed
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWrites {
		return errWriteFailed
	}
	delete(s.data, key)
	return nil
}
