package services

import (
	"fmt"
	"sync"
)

// MemoryStore is an in-process WorkbookStore.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (s *MemoryStore) Read(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkbookMissing, key)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Exists(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[key]
	return ok, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	return nil
}

// failingStore wraps a store and fails reads with err while err is set.
type failingStore struct {
	WorkbookStore
	err error
}

func (s *failingStore) Read(key string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.WorkbookStore.Read(key)
}
