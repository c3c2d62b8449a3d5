package connectivity

import (
	"context"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Prober проверяет доступность удалённого сервера
type Prober interface {
	Probe(ctx context.Context) error
}

// Monitor хранит признак доступности сети и уведомляет подписчиков о переходах
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu        gosync.RWMutex
	online    bool
	callbacks []func(online bool)
}

// New создает монитор в состоянии offline до первой успешной проверки
func New(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  5 * time.Second,
		log:      log.With(slog.String("component", "connectivity")),
	}
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnChange регистрирует обработчик, вызываемый только при смене состояния
func (m *Monitor) OnChange(cb func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Set выставляет состояние вручную и возвращает true, если оно изменилось
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	callbacks := append([]func(bool){}, m.callbacks...)
	m.mu.Unlock()

	m.log.Info("connectivity changed", slog.Bool("online", online))
	for _, cb := range callbacks {
		cb(online)
	}
	return true
}

// Check выполняет одну проверку и обновляет состояние
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.prober.Probe(probeCtx)
	if err != nil {
		m.log.Debug("probe failed", slog.Any("error", err))
	}
	m.Set(err == nil)
	return err == nil
}

// Run опрашивает сервер до отмены контекста
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
