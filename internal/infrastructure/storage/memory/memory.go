package memory

import (
	"context"
	gosync "sync"

	"fitsync/internal/infrastructure/storage"
)

// Storage хранилище в памяти, используется в тестах и при STORAGE_DRIVER=memory
type Storage struct {
	mu   gosync.RWMutex
	data map[string][]byte
}

var _ storage.KV = (*Storage)(nil)

func New() *Storage {
	return &Storage{data: make(map[string][]byte)}
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Storage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *Storage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *Storage) Close() error {
	return nil
}
