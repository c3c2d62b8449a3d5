package kvrepo

import (
	"context"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/ledger"
	"fitsync/internal/infrastructure/storage"

	"golang.org/x/exp/slog"
)

// LedgerRepository хранит журнал домена одним JSON-документом
type LedgerRepository struct {
	kv  storage.KV
	log *slog.Logger
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func NewLedgerRepository(kv storage.KV, log *slog.Logger) *LedgerRepository {
	return &LedgerRepository{kv: kv, log: log}
}

func (r *LedgerRepository) Load(ctx context.Context, domain string) ([]change.PendingChange, error) {
	var items []change.PendingChange
	if _, err := getJSON(ctx, r.kv, ledgerPrefix+domain, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Save удаляет ключ, когда журнал опустел
func (r *LedgerRepository) Save(ctx context.Context, domain string, changes []change.PendingChange) error {
	if len(changes) == 0 {
		r.log.Debug("ledger drained", slog.String("domain", domain))
		return r.kv.Remove(ctx, ledgerPrefix+domain)
	}
	return setJSON(ctx, r.kv, ledgerPrefix+domain, changes)
}
