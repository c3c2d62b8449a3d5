package kvrepo

import (
	"context"
	"encoding/json"
	"time"

	"fitsync/internal/domain/ledger"
	"fitsync/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

// Entity локальное состояние сущности домена
type Entity struct {
	Payload       json.RawMessage `json:"payload"`
	ServerVersion int64           `json:"serverVersion,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// DomainStore локальное состояние сущностей всех доменов
type DomainStore struct {
	kv  storage.KV
	log *slog.Logger
	now func() time.Time
}

var _ ledger.StateApplier = (*DomainStore)(nil)

func NewDomainStore(kv storage.KV, log *slog.Logger) *DomainStore {
	return &DomainStore{
		kv:  kv,
		log: log.With(slog.String("component", "domain_store")),
		now: time.Now,
	}
}

func entityKey(domain, entityID string) string {
	return statePrefix + domain + "/" + entityID
}

// Get возвращает storage.ErrNotFound для неизвестной сущности
func (s *DomainStore) Get(ctx context.Context, domain, entityID string) (*Entity, error) {
	var e Entity
	found, err := getJSON(ctx, s.kv, entityKey(domain, entityID), &e)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

// Put сохраняет локальную правку, серверная версия не меняется
func (s *DomainStore) Put(ctx context.Context, domain, entityID string, payload json.RawMessage) error {
	e, err := s.Get(ctx, domain, entityID)
	if err != nil {
		e = &Entity{}
	}
	e.Payload = payload
	e.UpdatedAt = s.now()
	return setJSON(ctx, s.kv, entityKey(domain, entityID), e)
}

func (s *DomainStore) Delete(ctx context.Context, domain, entityID string) error {
	return s.kv.Remove(ctx, entityKey(domain, entityID))
}

// ApplyServerState перезаписывает сущность серверной версией.
// Пустой payload означает, что на сервере сущности нет.
func (s *DomainStore) ApplyServerState(ctx context.Context, domain, entityID string, payload json.RawMessage, version int64) error {
	s.log.Info("applying server state",
		slog.String("domain", domain),
		slog.String("entity_id", entityID),
		slog.Int64("server_version", version),
	)

	if len(payload) == 0 || string(payload) == "null" {
		return s.Delete(ctx, domain, entityID)
	}
	return setJSON(ctx, s.kv, entityKey(domain, entityID), Entity{
		Payload:       payload,
		ServerVersion: version,
		UpdatedAt:     s.now(),
	})
}
