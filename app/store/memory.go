package store

import (
	"context"
	"strings"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps blobs in process memory. Used for tests and as a
// degraded fallback when no durable backend is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.blobs[key]
	if !ok {
		return nil, nil
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.blobs[key] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
