package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/sync"
)

// StateApplier перезаписывает локальное состояние домена серверным
type StateApplier interface {
	ApplyServerState(ctx context.Context, domain, entityID string, payload json.RawMessage, version int64) error
}

// Source связывает журнал домена с движком синхронизации
type Source struct {
	ledger  *Ledger
	policy  sync.Policy
	applier StateApplier
}

var _ sync.Source = (*Source)(nil)

// NewSource создает источник изменений. Пустая стратегия означает manual.
func NewSource(l *Ledger, policy sync.Policy, applier StateApplier) *Source {
	if policy == "" {
		policy = sync.PolicyManual
	}
	return &Source{
		ledger:  l,
		policy:  policy,
		applier: applier,
	}
}

func (s *Source) Domain() string {
	return s.ledger.Domain()
}

func (s *Source) Policy() sync.Policy {
	return s.policy
}

func (s *Source) Ledger() *Ledger {
	return s.ledger
}

func (s *Source) List(ctx context.Context) ([]change.PendingChange, error) {
	return s.ledger.List(ctx), nil
}

func (s *Source) Clear(ctx context.Context, refs []change.Ref) error {
	_, err := s.ledger.Clear(ctx, refs)
	return err
}

// ResolveConflict: preferLocal переотправляет локальную версию поверх серверной,
// preferServer один раз перезаписывает состояние домена и снимает изменение
func (s *Source) ResolveConflict(ctx context.Context, conflict sync.Conflict, policy sync.Policy) error {
	switch policy {
	case sync.PolicyPreferLocal:
		return s.ledger.Rebase(ctx, conflict.Change.ID, conflict.ServerVersion)

	case sync.PolicyPreferServer:
		if s.applier == nil {
			return fmt.Errorf("no state applier for domain %s", s.Domain())
		}
		err := s.applier.ApplyServerState(ctx, s.Domain(), conflict.Change.EntityID, conflict.ServerPayload, conflict.ServerVersion)
		if err != nil {
			return fmt.Errorf("failed to apply server state: %w", err)
		}
		_, err = s.ledger.Clear(ctx, []change.Ref{conflict.Change.Ref()})
		return err
	}

	return fmt.Errorf("%w: %s", sync.ErrUnknownPolicy, policy)
}
