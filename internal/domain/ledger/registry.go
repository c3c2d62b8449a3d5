package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/sync"
)

// LocalState локальное хранилище сущностей, которое обновляется вместе с журналом
type LocalState interface {
	Put(ctx context.Context, domain, entityID string, payload json.RawMessage) error
	Delete(ctx context.Context, domain, entityID string) error
}

// Registry точка входа доменов: правка сущности и постановка изменения в журнал
type Registry struct {
	local   LocalState
	order   []string
	sources map[string]*Source
}

func NewRegistry(local LocalState, sources ...*Source) *Registry {
	r := &Registry{
		local:   local,
		sources: make(map[string]*Source, len(sources)),
	}
	for _, src := range sources {
		r.order = append(r.order, src.Domain())
		r.sources[src.Domain()] = src
	}
	return r
}

// Append сохраняет локальное состояние и ставит изменение в очередь домена
func (r *Registry) Append(ctx context.Context, domain string, c change.PendingChange) (change.PendingChange, error) {
	src, ok := r.sources[domain]
	if !ok {
		return change.PendingChange{}, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}

	entry, err := src.ledger.Append(ctx, c)
	if err != nil {
		return change.PendingChange{}, err
	}

	if r.local != nil {
		if entry.Action == change.ActionDelete {
			err = r.local.Delete(ctx, domain, entry.EntityID)
		} else {
			err = r.local.Put(ctx, domain, entry.EntityID, entry.Payload)
		}
		if err != nil {
			return entry, fmt.Errorf("failed to update local %s state: %w", domain, err)
		}
	}
	return entry, nil
}

func (r *Registry) List(ctx context.Context, domain string) ([]change.PendingChange, error) {
	src, ok := r.sources[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return src.ledger.List(ctx), nil
}

// Domains возвращает домены в порядке регистрации
func (r *Registry) Domains() []string {
	return append([]string(nil), r.order...)
}

// Sources возвращает источники в порядке регистрации, он же порядок обхода батчера
func (r *Registry) Sources() []sync.Source {
	out := make([]sync.Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}
