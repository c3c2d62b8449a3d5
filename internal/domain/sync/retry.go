package sync

import (
	"sort"
	"time"

	"fitsync/internal/domain/change"
)

// RetryScheduler держит изменения, упавшие с повторяемой ошибкой.
// Синхронизацию обеспечивает вызывающий (stateMu оркестратора).
type RetryScheduler struct {
	cfg     RetryConfig
	entries map[string]*RetryEntry
}

// NewRetryScheduler создает планировщик повторов
func NewRetryScheduler(cfg RetryConfig) *RetryScheduler {
	return &RetryScheduler{
		cfg:     cfg,
		entries: make(map[string]*RetryEntry),
	}
}

// Backoff возвращает задержку для заданного числа предыдущих неудач
func (r *RetryScheduler) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := r.cfg.BaseDelay
	for i := 0; i < retryCount; i++ {
		delay *= 2
		if delay >= r.cfg.MaxDelay || delay <= 0 {
			return r.cfg.MaxDelay
		}
	}
	if delay > r.cfg.MaxDelay {
		return r.cfg.MaxDelay
	}
	return delay
}

// Schedule регистрирует очередную неудачу. exhausted == true означает,
// что лимит повторов исчерпан и запись снята с планирования.
func (r *RetryScheduler) Schedule(c change.PendingChange, reason string, now time.Time) (entry RetryEntry, exhausted bool) {
	e, ok := r.entries[c.ID]
	if !ok {
		e = &RetryEntry{}
	}
	delay := r.Backoff(e.RetryCount)
	e.Change = c
	e.RetryCount++
	e.NextAttemptAt = now.Add(delay)
	e.LastError = reason

	if e.RetryCount >= r.cfg.MaxRetries {
		delete(r.entries, c.ID)
		return *e, true
	}
	r.entries[c.ID] = e
	return *e, false
}

// Blocked сообщает, что время следующей попытки ещё не наступило
func (r *RetryScheduler) Blocked(id string, now time.Time) bool {
	e, ok := r.entries[id]
	return ok && now.Before(e.NextAttemptAt)
}

// Forget снимает изменение с планирования
func (r *RetryScheduler) Forget(id string) {
	delete(r.entries, id)
}

// Prune удаляет записи об изменениях, которых больше нет в журналах
func (r *RetryScheduler) Prune(present map[string]struct{}) int {
	removed := 0
	for id := range r.entries {
		if _, ok := present[id]; !ok {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func (r *RetryScheduler) Get(id string) (RetryEntry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return RetryEntry{}, false
	}
	return *e, true
}

func (r *RetryScheduler) Len() int {
	return len(r.entries)
}

// Entries возвращает копию записей, упорядоченную по времени следующей попытки
func (r *RetryScheduler) Entries() []RetryEntry {
	out := make([]RetryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].NextAttemptAt.Before(out[j].NextAttemptAt)
	})
	return out
}

// Restore заменяет состояние сохранёнными записями
func (r *RetryScheduler) Restore(entries []RetryEntry) {
	r.entries = make(map[string]*RetryEntry, len(entries))
	for i := range entries {
		e := entries[i]
		r.entries[e.Change.ID] = &e
	}
}
