package store

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store for tests and ephemeral wallets.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, filename string, data []byte) (bool, error) {
	if err := ValidateFilename(filename); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[filename]; ok {
		return false, nil
	}
	s.files[filename] = slices.Clone(data)
	return true, nil
}

func (s *MemoryStore) Read(_ context.Context, filename string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(data), nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.files)), nil
}

func (s *MemoryStore) Delete(_ context.Context, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[filename]; !ok {
		return ErrNotFound
	}
	delete(s.files, filename)
	return nil
}
