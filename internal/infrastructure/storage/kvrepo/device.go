package kvrepo

import (
	"context"
	"errors"
	"fmt"

	"fitsync/internal/infrastructure/storage"

	"github.com/google/uuid"
)

// DeviceID возвращает идентификатор устройства, создавая его при первом запуске
func DeviceID(ctx context.Context, kv storage.KV) (string, error) {
	raw, err := kv.Get(ctx, deviceIDKey)
	if err == nil && len(raw) > 0 {
		return string(raw), nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to read device id: %w", err)
	}

	id := uuid.NewString()
	if err := kv.Set(ctx, deviceIDKey, []byte(id)); err != nil {
		return "", fmt.Errorf("failed to store device id: %w", err)
	}
	return id, nil
}
