package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// KV хранилище ключ-значение, на котором живут журналы и состояние движка
type KV interface {
	// Get возвращает ErrNotFound, если ключа нет
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove не считает отсутствие ключа ошибкой
	Remove(ctx context.Context, key string) error
	Close() error
}
