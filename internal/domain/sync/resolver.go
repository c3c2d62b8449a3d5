package sync

import (
	"context"
	"time"

	"fitsync/internal/domain/change"

	"golang.org/x/exp/slog"
)

// Resolver применяет исходы пакета к журналам, планировщику и хранилищам.
// Вызывается под stateMu оркестратора.
type Resolver struct {
	sources   map[string]Source
	retries   *RetryScheduler
	failed    map[string]FailedItem
	conflicts map[string]ConflictRecord
	log       *slog.Logger
}

// NewResolver создает обработчик исходов
func NewResolver(sources map[string]Source, retries *RetryScheduler, log *slog.Logger) *Resolver {
	return &Resolver{
		sources:   sources,
		retries:   retries,
		failed:    make(map[string]FailedItem),
		conflicts: make(map[string]ConflictRecord),
		log:       log,
	}
}

// Frozen сообщает, ждёт ли изменение ручного решения конфликта
func (r *Resolver) Frozen(id string) bool {
	_, ok := r.conflicts[id]
	return ok
}

// Apply применяет каждый исход ровно один раз в порядке ответа
func (r *Resolver) Apply(ctx context.Context, batch *Batch, outcomes []Outcome, now time.Time) CycleReport {
	report := CycleReport{Outcome: CycleCompleted, Sent: len(batch.Items)}

	byID := make(map[string]change.PendingChange, len(batch.Items))
	for _, item := range batch.Items {
		byID[item.ID] = item
	}

	for _, o := range outcomes {
		item, ok := byID[o.ChangeID]
		if !ok {
			continue
		}
		delete(byID, o.ChangeID)

		src, ok := r.sources[item.Domain]
		if !ok {
			r.log.Error("outcome for unregistered domain",
				slog.String("domain", item.Domain),
				slog.String("change_id", item.ID),
			)
			report.Errors = append(report.Errors, &ItemError{ChangeID: item.ID, Domain: item.Domain, Result: o.Result, Message: ErrUnknownDomain.Error()})
			continue
		}

		switch o.Result {
		case ResultSynced:
			r.retries.Forget(item.ID)
			if err := src.Clear(ctx, []change.Ref{item.Ref()}); err != nil {
				r.log.Error("failed to clear synced change", slog.String("change_id", item.ID), slog.Any("error", err))
				report.Errors = append(report.Errors, err)
			}
			report.Synced++

		case ResultConflict:
			r.retries.Forget(item.ID)
			report.Conflicts++
			r.applyConflict(ctx, src, item, o, now, &report)

		case ResultPermanentError:
			r.retries.Forget(item.ID)
			r.fail(ctx, src, item, o.Message, FailurePermanent, 0, now, &report)

		default:
			entry, exhausted := r.retries.Schedule(item, o.Message, now)
			if exhausted {
				r.fail(ctx, src, item, o.Message, FailureExhausted, entry.RetryCount, now, &report)
				continue
			}
			r.log.Debug("change scheduled for retry",
				slog.String("change_id", item.ID),
				slog.Int("retry_count", entry.RetryCount),
				slog.Time("next_attempt_at", entry.NextAttemptAt),
			)
			report.Retried++
		}
	}

	return report
}

func (r *Resolver) applyConflict(ctx context.Context, src Source, item change.PendingChange, o Outcome, now time.Time, report *CycleReport) {
	conflict := Conflict{
		Change:        item,
		ServerVersion: o.ServerVersion,
		ServerPayload: o.ServerPayload,
		Message:       o.Message,
	}

	policy := src.Policy()
	switch policy {
	case PolicyPreferLocal, PolicyPreferServer:
		err := src.ResolveConflict(ctx, conflict, policy)
		if err == nil {
			r.log.Info("conflict resolved by policy",
				slog.String("change_id", item.ID),
				slog.String("policy", string(policy)),
				slog.Int64("server_version", o.ServerVersion),
			)
			return
		}
		r.log.Error("conflict policy failed, keeping for manual resolution",
			slog.String("change_id", item.ID),
			slog.String("policy", string(policy)),
			slog.Any("error", err),
		)
		report.Errors = append(report.Errors, err)
	}

	r.conflicts[item.ID] = ConflictRecord{Conflict: conflict, DetectedAt: now}
	r.log.Warn("conflict awaits manual resolution",
		slog.String("domain", item.Domain),
		slog.String("change_id", item.ID),
	)
}

func (r *Resolver) fail(ctx context.Context, src Source, item change.PendingChange, reason string, kind FailureKind, retries int, now time.Time, report *CycleReport) {
	r.failed[item.ID] = FailedItem{
		Change:     item,
		Reason:     reason,
		Kind:       kind,
		RetryCount: retries,
		FailedAt:   now,
	}
	report.Failed++

	result := ResultPermanentError
	if kind == FailureExhausted {
		result = ResultRetryableError
	}
	report.Errors = append(report.Errors, &ItemError{
		ChangeID: item.ID,
		Domain:   item.Domain,
		Result:   result,
		Message:  reason,
	})

	if err := src.Clear(ctx, []change.Ref{item.Ref()}); err != nil {
		r.log.Error("failed to clear failed change", slog.String("change_id", item.ID), slog.Any("error", err))
		report.Errors = append(report.Errors, err)
	}

	r.log.Warn("change moved to failed store",
		slog.String("domain", item.Domain),
		slog.String("change_id", item.ID),
		slog.String("kind", string(kind)),
		slog.String("reason", reason),
	)
}

// Resolve применяет ручное решение к сохранённому конфликту
func (r *Resolver) Resolve(ctx context.Context, id string, choice Choice) error {
	rec, ok := r.conflicts[id]
	if !ok {
		return ErrConflictNotFound
	}
	src, ok := r.sources[rec.Change.Domain]
	if !ok {
		return ErrUnknownDomain
	}

	var err error
	switch choice {
	case ChoiceLocal:
		err = src.ResolveConflict(ctx, rec.Conflict, PolicyPreferLocal)
	case ChoiceServer:
		err = src.ResolveConflict(ctx, rec.Conflict, PolicyPreferServer)
	case ChoiceDiscard:
		err = src.Clear(ctx, []change.Ref{{ID: id}})
	default:
		return ErrInvalidChoice
	}
	if err != nil {
		return err
	}

	delete(r.conflicts, id)
	return nil
}

// Dismiss удаляет элемент из хранилища неудачных
func (r *Resolver) Dismiss(id string) error {
	if _, ok := r.failed[id]; !ok {
		return ErrFailedItemNotFound
	}
	delete(r.failed, id)
	return nil
}
