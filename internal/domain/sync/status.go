package sync

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/slog"
)

// Status собирает снимок под stateMu, поэтому цикл не может
// разорвать его посередине применения исходов
func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	syncing := s.syncing
	s.mu.Unlock()

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	pending := 0
	for _, src := range s.sources {
		items, err := src.List(ctx)
		if err != nil {
			s.log.Warn("failed to count pending changes",
				slog.String("domain", src.Domain()),
				slog.Any("error", err),
			)
			continue
		}
		for _, item := range items {
			if !s.resolver.Frozen(item.ID) {
				pending++
			}
		}
	}

	return Status{
		IsOnline:       s.conn.IsOnline(),
		IsSyncing:      syncing,
		LastSyncAt:     s.lastSyncAt,
		PendingCount:   pending,
		ScheduledCount: s.retries.Len(),
		FailedCount:    len(s.resolver.failed),
		ConflictCount:  len(s.resolver.conflicts),
		LastError:      s.lastError,
		LastErrorAt:    s.lastErrorAt,
	}
}

// StatusSource источник снимков для экспорта метрик
type StatusSource interface {
	Status(ctx context.Context) Status
}

// Reporter экспортирует статус синхронизации как метрики Prometheus.
// Значения вычисляются в момент сбора.
type Reporter struct {
	src StatusSource

	pending   *prometheus.Desc
	scheduled *prometheus.Desc
	failed    *prometheus.Desc
	conflicts *prometheus.Desc
	online    *prometheus.Desc
	syncing   *prometheus.Desc
	lastSync  *prometheus.Desc
}

func NewReporter(src StatusSource) *Reporter {
	return &Reporter{
		src:       src,
		pending:   prometheus.NewDesc("fitsync_pending_changes", "Changes waiting to be sent.", nil, nil),
		scheduled: prometheus.NewDesc("fitsync_scheduled_retries", "Changes waiting for a backoff window.", nil, nil),
		failed:    prometheus.NewDesc("fitsync_failed_items", "Changes in the failed store.", nil, nil),
		conflicts: prometheus.NewDesc("fitsync_open_conflicts", "Conflicts awaiting manual resolution.", nil, nil),
		online:    prometheus.NewDesc("fitsync_online", "1 when the remote authority is reachable.", nil, nil),
		syncing:   prometheus.NewDesc("fitsync_syncing", "1 while a sync cycle is running.", nil, nil),
		lastSync:  prometheus.NewDesc("fitsync_last_sync_timestamp_seconds", "Unix time of the last processed batch.", nil, nil),
	}
}

func (r *Reporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- r.pending
	ch <- r.scheduled
	ch <- r.failed
	ch <- r.conflicts
	ch <- r.online
	ch <- r.syncing
	ch <- r.lastSync
}

func (r *Reporter) Collect(ch chan<- prometheus.Metric) {
	st := r.src.Status(context.Background())

	lastSync := 0.0
	if !st.LastSyncAt.IsZero() {
		lastSync = float64(st.LastSyncAt.Unix())
	}

	ch <- prometheus.MustNewConstMetric(r.pending, prometheus.GaugeValue, float64(st.PendingCount))
	ch <- prometheus.MustNewConstMetric(r.scheduled, prometheus.GaugeValue, float64(st.ScheduledCount))
	ch <- prometheus.MustNewConstMetric(r.failed, prometheus.GaugeValue, float64(st.FailedCount))
	ch <- prometheus.MustNewConstMetric(r.conflicts, prometheus.GaugeValue, float64(st.ConflictCount))
	ch <- prometheus.MustNewConstMetric(r.online, prometheus.GaugeValue, boolGauge(st.IsOnline))
	ch <- prometheus.MustNewConstMetric(r.syncing, prometheus.GaugeValue, boolGauge(st.IsSyncing))
	ch <- prometheus.MustNewConstMetric(r.lastSync, prometheus.GaugeValue, lastSync)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
