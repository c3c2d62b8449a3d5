package ledger

import (
	"context"

	"fitsync/internal/domain/change"
)

// Repository хранит журнал домена целиком
type Repository interface {
	Load(ctx context.Context, domain string) ([]change.PendingChange, error)
	Save(ctx context.Context, domain string, changes []change.PendingChange) error
}
