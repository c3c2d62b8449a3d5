package ledger

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"fitsync/internal/domain/change"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// Ledger журнал неотправленных изменений одного домена.
// Хранит не больше одной записи на сущность.
type Ledger struct {
	domain string
	repo   Repository
	log    *slog.Logger
	now    func() time.Time

	mu      gosync.Mutex
	entries map[string]change.PendingChange
}

// New создает журнал. repo может быть nil для журнала в памяти.
func New(domain string, repo Repository, log *slog.Logger) *Ledger {
	return &Ledger{
		domain:  domain,
		repo:    repo,
		log:     log.With(slog.String("component", "ledger"), slog.String("domain", domain)),
		now:     time.Now,
		entries: make(map[string]change.PendingChange),
	}
}

func (l *Ledger) Domain() string {
	return l.domain
}

// Load поднимает сохранённые изменения
func (l *Ledger) Load(ctx context.Context) error {
	if l.repo == nil {
		return nil
	}

	items, err := l.repo.Load(ctx, l.domain)
	if err != nil {
		return fmt.Errorf("failed to load %s ledger: %w", l.domain, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = make(map[string]change.PendingChange, len(items))
	for _, item := range items {
		l.entries[item.Key()] = item
	}

	l.log.Debug("ledger loaded", slog.Int("entries", len(items)))
	return nil
}

// Append ставит изменение в очередь, объединяя его с неотправленной
// записью той же сущности
func (l *Ledger) Append(ctx context.Context, c change.PendingChange) (change.PendingChange, error) {
	if err := change.Validate(l.domain, c); err != nil {
		return change.PendingChange{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c.Domain = l.domain

	entry, ok := l.entries[c.Key()]
	if ok {
		entry.Action = coalesce(entry.Action, c.Action)
		entry.Payload = c.Payload
		entry.UpdatedAt = now
		entry.LocalVersion++
		if c.BaseVersion > 0 {
			entry.BaseVersion = c.BaseVersion
		}
	} else {
		entry = c
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.UpdatedAt = now
		entry.LocalVersion = 1
		entry.Overwrite = false
	}

	next := l.copyEntries()
	next[entry.Key()] = entry
	if err := l.commit(ctx, next); err != nil {
		return change.PendingChange{}, err
	}

	l.log.Debug("change appended",
		slog.String("entity_id", entry.EntityID),
		slog.String("action", string(entry.Action)),
		slog.Int64("local_version", entry.LocalVersion),
	)
	return entry, nil
}

// coalesce: create, затем update остаётся create; всё остальное берёт новое действие
func coalesce(prev, next change.Action) change.Action {
	if prev == change.ActionCreate && next == change.ActionUpdate {
		return change.ActionCreate
	}
	return next
}

// List возвращает все изменения по CreatedAt
func (l *Ledger) List(_ context.Context) []change.PendingChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sorted()
}

// Drain возвращает до max первых изменений, не удаляя их
func (l *Ledger) Drain(_ context.Context, max int) []change.PendingChange {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.sorted()
	if max > 0 && len(items) > max {
		items = items[:max]
	}
	return items
}

// Clear удаляет подтверждённые изменения. Ссылка с LocalVersion не удаляет
// запись, отредактированную после отправки: такая запись получает новый ID,
// чтобы исход старой версии больше к ней не относился.
func (l *Ledger) Clear(ctx context.Context, refs []change.Ref) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.copyEntries()
	removed, renamed := 0, 0
	for _, ref := range refs {
		for key, entry := range next {
			if entry.ID != ref.ID {
				continue
			}
			if ref.LocalVersion > 0 && entry.LocalVersion > ref.LocalVersion {
				entry.ID = uuid.NewString()
				next[key] = entry
				renamed++
				l.log.Debug("change edited in flight, keeping",
					slog.String("change_id", ref.ID),
					slog.String("new_change_id", entry.ID),
					slog.Int64("sent_version", ref.LocalVersion),
					slog.Int64("local_version", entry.LocalVersion),
				)
				break
			}
			delete(next, key)
			removed++
			break
		}
	}

	if removed == 0 && renamed == 0 {
		return 0, nil
	}
	if err := l.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Rebase помечает изменение как авторитетную перезапись поверх серверной версии
func (l *Ledger) Rebase(ctx context.Context, id string, serverVersion int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := l.copyEntries()
	for key, entry := range next {
		if entry.ID != id {
			continue
		}
		entry.BaseVersion = serverVersion
		entry.Overwrite = true
		next[key] = entry
		return l.commit(ctx, next)
	}
	return fmt.Errorf("%w: %s", ErrChangeNotFound, id)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) copyEntries() map[string]change.PendingChange {
	next := make(map[string]change.PendingChange, len(l.entries)+1)
	for k, v := range l.entries {
		next[k] = v
	}
	return next
}

// commit сохраняет новое состояние и только потом делает его видимым
func (l *Ledger) commit(ctx context.Context, next map[string]change.PendingChange) error {
	if l.repo != nil {
		items := make([]change.PendingChange, 0, len(next))
		for _, v := range next {
			items = append(items, v)
		}
		sortByCreated(items)
		if err := l.repo.Save(ctx, l.domain, items); err != nil {
			return fmt.Errorf("failed to save %s ledger: %w", l.domain, err)
		}
	}
	l.entries = next
	return nil
}

func (l *Ledger) sorted() []change.PendingChange {
	items := make([]change.PendingChange, 0, len(l.entries))
	for _, v := range l.entries {
		items = append(items, v)
	}
	sortByCreated(items)
	return items
}

func sortByCreated(items []change.PendingChange) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
