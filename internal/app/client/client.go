package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	gosync "sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/exp/slog"

	"fitsync/internal/app/client/api"
	"fitsync/internal/app/client/config"
	"fitsync/internal/domain/connectivity"
	"fitsync/internal/domain/ledger"
	"fitsync/internal/domain/sync"
	"fitsync/internal/infrastructure/storage"
	"fitsync/internal/infrastructure/storage/kvrepo"
	"fitsync/internal/infrastructure/storage/memory"
	"fitsync/internal/infrastructure/storage/postgres"
	"fitsync/internal/infrastructure/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

// Remote транспорт, который умеет и проверять доступность сервера
type Remote interface {
	sync.Transport
	connectivity.Prober
}

// App корень композиции агента синхронизации
type App struct {
	config   *config.Config
	log      *slog.Logger
	store    storage.KV
	remote   Remote
	deviceID string

	registry *ledger.Registry
	monitor  *connectivity.Monitor
	engine   *sync.Service
	metrics  *prometheus.Registry
	server   *http.Server

	closers []func() error
	wg      gosync.WaitGroup
}

// New собирает агент. При ошибке всё уже открытое закрывается.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (app *App, err error) {
	a := &App{
		config: cfg,
		log:    log.With(slog.String("component", "app")),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.store, err = openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	a.deviceID = cfg.DeviceID
	if a.deviceID == "" {
		if a.deviceID, err = kvrepo.DeviceID(ctx, a.store); err != nil {
			return nil, err
		}
	}

	a.remote, err = openRemote(cfg, log)
	if err != nil {
		return nil, err
	}
	if c, ok := a.remote.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	domainStore := kvrepo.NewDomainStore(a.store, log)
	ledgerRepo := kvrepo.NewLedgerRepository(a.store, log)

	sources := make([]*ledger.Source, 0, len(cfg.Domains))
	for _, d := range cfg.Domains {
		policy, err := sync.ParsePolicy(d.Policy)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", d.Name, err)
		}

		l := ledger.New(d.Name, ledgerRepo, log)
		if err := l.Load(ctx); err != nil {
			return nil, err
		}
		sources = append(sources, ledger.NewSource(l, policy, domainStore))
	}
	a.registry = ledger.NewRegistry(domainStore, sources...)

	a.monitor = connectivity.New(a.remote, cfg.ProbeInterval, log)

	a.engine, err = sync.NewService(
		kvrepo.NewStateRepository(a.store),
		a.remote,
		a.monitor,
		log,
		&sync.Config{
			DeviceID:       a.deviceID,
			Interval:       cfg.SyncInterval,
			BatchSize:      cfg.BatchSize,
			RequestTimeout: cfg.RequestTimeout,
			Retry: sync.RetryConfig{
				BaseDelay:  cfg.RetryBaseDelay,
				MaxDelay:   cfg.RetryMaxDelay,
				MaxRetries: cfg.MaxRetries,
			},
		},
		a.registry.Sources()...,
	)
	if err != nil {
		return nil, err
	}
	if err := a.engine.Restore(ctx); err != nil {
		return nil, err
	}
	a.engine.OnStatus(func(st sync.Status) {
		a.log.Debug("sync status",
			slog.Bool("online", st.IsOnline),
			slog.Int("pending", st.PendingCount),
			slog.Int("scheduled", st.ScheduledCount),
			slog.Int("failed", st.FailedCount),
			slog.Int("conflicts", st.ConflictCount),
		)
	})

	a.metrics = prometheus.NewRegistry()
	a.metrics.MustRegister(
		sync.NewReporter(a.engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.server = &http.Server{
		Addr: cfg.APIAddress,
		Handler: api.New(api.Deps{
			Engine:   a.engine,
			Registry: a.registry,
			DeviceID: a.deviceID,
			Metrics:  a.metrics,
		}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.log.Info("sync agent assembled",
		slog.String("device_id", a.deviceID),
		slog.String("storage", cfg.StorageDriver),
		slog.String("transport", cfg.Transport),
		slog.Any("domains", a.registry.Domains()),
	)
	return a, nil
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StoragePostgres:
		return postgres.New(ctx, cfg.DatabaseURI, cfg.MigrationsPath)
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DataPath), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return sqlite.New(cfg.DataPath)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func openRemote(cfg *config.Config, log *slog.Logger) (Remote, error) {
	switch cfg.Transport {
	case config.TransportHTTP:
		return NewHTTPClient(cfg.RemoteURL, log), nil
	case config.TransportNATS:
		return NewNATSClient(cfg.NATSURL, cfg.NATSSubject, log)
	}
	return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func (a *App) Engine() *sync.Service {
	return a.engine
}

func (a *App) Registry() *ledger.Registry {
	return a.registry
}

func (a *App) DeviceID() string {
	return a.deviceID
}

// Handler управляющее API без запуска сервера
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает монитор, движок и управляющее API и блокируется
// до сигнала или отмены ctx
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a.monitor.Check(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx)
	}()

	a.engine.Start(ctx)

	serveErr := make(chan error, 1)
	go func() {
		a.log.Info("control API listening", slog.String("address", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown requested")
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("control API failed: %w", err)
			a.log.Error("control API failed", slog.Any("error", err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("control API shutdown", slog.Any("error", err))
	}

	a.engine.Stop()
	a.wg.Wait()

	a.log.Info("sync agent stopped")
	return runErr
}

// SyncOnce проверяет сеть и выполняет один цикл в текущем процессе
func (a *App) SyncOnce(ctx context.Context) sync.CycleReport {
	a.monitor.Check(ctx)
	return a.engine.RunCycle(ctx)
}

// Close освобождает транспорт и хранилище в обратном порядке
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
