package kvrepo

import (
	"context"

	"fitsync/internal/domain/sync"
	"fitsync/internal/infrastructure/storage"
)

// StateRepository хранит повторы, неудачные элементы и конфликты движка
type StateRepository struct {
	kv storage.KV
}

var _ sync.Repository = (*StateRepository)(nil)

func NewStateRepository(kv storage.KV) *StateRepository {
	return &StateRepository{kv: kv}
}

func (r *StateRepository) Load(ctx context.Context) (*sync.State, error) {
	var st sync.State
	found, err := getJSON(ctx, r.kv, syncStateKey, &st)
	if err != nil || !found {
		return nil, err
	}
	return &st, nil
}

func (r *StateRepository) Save(ctx context.Context, st *sync.State) error {
	return setJSON(ctx, r.kv, syncStateKey, st)
}
