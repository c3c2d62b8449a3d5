package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fitsync/internal/domain/change"

	"golang.org/x/exp/slog"
)

// Batcher собирает пакет по кругу из всех журналов доменов
type Batcher struct {
	sources []Source
	retries *RetryScheduler
	frozen  func(id string) bool
	log     *slog.Logger
}

// NewBatcher создает сборщик пакетов. frozen отмечает изменения,
// исключённые из автоматической отправки.
func NewBatcher(sources []Source, retries *RetryScheduler, frozen func(id string) bool, log *slog.Logger) *Batcher {
	if frozen == nil {
		frozen = func(string) bool { return false }
	}
	return &Batcher{
		sources: sources,
		retries: retries,
		frozen:  frozen,
		log:     log,
	}
}

// Next возвращает следующий пакет или nil, если отправлять нечего.
// Раунд k берёт k-е подходящее изменение каждого домена, внутри раунда
// порядок по CreatedAt.
func (b *Batcher) Next(ctx context.Context, maxItems int, deviceID string, now time.Time) (*Batch, error) {
	present := make(map[string]struct{})
	queues := make([][]change.PendingChange, 0, len(b.sources))

	for _, src := range b.sources {
		items, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s changes: %w", src.Domain(), err)
		}

		eligible := make([]change.PendingChange, 0, len(items))
		for _, item := range items {
			present[item.ID] = struct{}{}
			if b.frozen(item.ID) || b.retries.Blocked(item.ID, now) {
				continue
			}
			eligible = append(eligible, item)
		}
		queues = append(queues, eligible)
	}

	if n := b.retries.Prune(present); n > 0 {
		b.log.Debug("pruned stale retry entries", slog.Int("count", n))
	}

	var items []change.PendingChange
	for k := 0; maxItems <= 0 || len(items) < maxItems; k++ {
		var round []change.PendingChange
		for _, q := range queues {
			if k < len(q) {
				round = append(round, q[k])
			}
		}
		if len(round) == 0 {
			break
		}
		sort.SliceStable(round, func(i, j int) bool {
			return round[i].CreatedAt.Before(round[j].CreatedAt)
		})
		for _, item := range round {
			if maxItems > 0 && len(items) == maxItems {
				break
			}
			if item.DeviceID == "" {
				item.DeviceID = deviceID
			}
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, nil
	}

	return &Batch{
		Items:        items,
		DeviceID:     deviceID,
		DispatchedAt: now,
	}, nil
}
