package kvrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"fitsync/internal/infrastructure/storage"
)

const (
	ledgerPrefix = "ledger/"
	statePrefix  = "state/"
	syncStateKey = "sync/state"
	deviceIDKey  = "device/id"
)

func getJSON(ctx context.Context, kv storage.KV, key string, dst any) (bool, error) {
	raw, err := kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, kv storage.KV, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, raw)
}
