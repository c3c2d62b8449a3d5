package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс движка синхронизации для вызывающего кода
type Servicer interface {
	// Start запускает периодическую синхронизацию
	Start(ctx context.Context)

	// Stop останавливает автоматические триггеры и дожидается текущего цикла
	Stop()

	// ForceSync запускает цикл немедленно, если он ещё не идёт
	ForceSync(ctx context.Context) ForceResult

	// Status возвращает согласованный снимок состояния
	Status(ctx context.Context) Status

	// Conflicts возвращает конфликты, ожидающие ручного решения
	Conflicts() []ConflictRecord

	// Failed возвращает изменения в хранилище неудачных
	Failed() []FailedItem

	// ResolveConflict применяет ручное решение к конфликту
	ResolveConflict(ctx context.Context, changeID string, choice Choice) error

	// DismissFailed убирает элемент из хранилища неудачных
	DismissFailed(ctx context.Context, changeID string) error
}

// Service оркестратор синхронизации: не более одного цикла одновременно
type Service struct {
	cfg       *Config
	repo      Repository
	transport Transport
	conn      Connectivity
	log       *slog.Logger
	now       func() time.Time

	sources  []Source
	byDomain map[string]Source
	batcher  *Batcher
	retries  *RetryScheduler
	resolver *Resolver

	mu       gosync.Mutex
	syncing  bool
	rerun    bool
	running  bool
	stopping bool
	loopCtx  context.Context
	cancel   context.CancelFunc
	onStatus []func(Status)
	wg       gosync.WaitGroup

	stateMu     gosync.RWMutex
	lastSyncAt  time.Time
	lastError   string
	lastErrorAt time.Time
	hint        time.Duration
}

// NewService создает оркестратор. repo может быть nil, тогда состояние
// живёт только в памяти.
func NewService(repo Repository, transport Transport, conn Connectivity, log *slog.Logger, cfg *Config, sources ...Source) (*Service, error) {
	cfg = cfg.withDefaults()
	log = log.With(slog.String("component", "sync_engine"))

	byDomain := make(map[string]Source, len(sources))
	for _, src := range sources {
		if _, ok := byDomain[src.Domain()]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDomain, src.Domain())
		}
		byDomain[src.Domain()] = src
	}

	retries := NewRetryScheduler(cfg.Retry)
	resolver := NewResolver(byDomain, retries, log)

	s := &Service{
		cfg:       cfg,
		repo:      repo,
		transport: transport,
		conn:      conn,
		log:       log,
		now:       time.Now,
		sources:   sources,
		byDomain:  byDomain,
		retries:   retries,
		resolver:  resolver,
		batcher:   NewBatcher(sources, retries, resolver.Frozen, log),
	}

	conn.OnChange(s.onConnectivity)

	return s, nil
}

// Restore загружает сохранённое состояние движка
func (s *Service) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	state, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		return nil
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	s.retries.Restore(state.Retries)
	for _, f := range state.Failed {
		s.resolver.failed[f.Change.ID] = f
	}
	for _, c := range state.Conflicts {
		s.resolver.conflicts[c.Change.ID] = c
	}
	s.lastSyncAt = state.LastSyncAt

	s.log.Info("sync state restored",
		slog.Int("retries", len(state.Retries)),
		slog.Int("failed", len(state.Failed)),
		slog.Int("conflicts", len(state.Conflicts)),
	)
	return nil
}

// OnStatus подписывает на снимок состояния после каждого выполненного цикла
func (s *Service) OnStatus(cb func(Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = append(s.onStatus, cb)
}

// Start запускает периодический таймер и сразу пробует синхронизироваться
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.loopCtx = loopCtx
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info("sync engine started", slog.Duration("interval", s.cfg.Interval))

	s.wg.Add(1)
	go s.loop(loopCtx)

	s.trigger(loopCtx, false, true)
}

// Stop останавливает таймер и ожидает завершения фоновых циклов.
// Пока Stop ждёт, новые циклы не запускаются.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.stopping = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()
	s.log.Info("sync engine stopped")
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	timer := time.NewTimer(s.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.trigger(ctx, false, true)
			timer.Reset(s.nextInterval())
		}
	}
}

func (s *Service) nextInterval() time.Duration {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.hint > 0 {
		return s.hint
	}
	return s.cfg.Interval
}

// ForceSync запускает цикл в фоне. Повторный вызов во время цикла
// ничего не ставит в очередь.
func (s *Service) ForceSync(ctx context.Context) ForceResult {
	if !s.trigger(context.WithoutCancel(ctx), false, false) {
		s.log.Debug("force sync ignored, cycle in progress")
		return ForceAlreadyInProgress
	}
	return ForceStarted
}

func (s *Service) onConnectivity(online bool) {
	if !online {
		s.log.Info("connectivity lost")
		return
	}

	s.mu.Lock()
	ctx := s.loopCtx
	s.mu.Unlock()

	s.log.Info("connectivity restored")
	if ctx != nil {
		s.trigger(ctx, true, true)
	}
}

// trigger запускает фоновый цикл. remember запоминает запрос,
// если цикл уже идёт. background-триггеры работают только у запущенного движка.
func (s *Service) trigger(ctx context.Context, remember, background bool) bool {
	if !s.begin(remember, background) {
		return false
	}

	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
		s.end()
	}()
	return true
}

// begin занимает слот цикла и учитывает его в wg под mu,
// чтобы Stop не пропустил только что запущенный цикл
func (s *Service) begin(remember, background bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping || (background && !s.running) {
		return false
	}
	if s.syncing {
		if remember {
			s.rerun = true
		}
		return false
	}
	s.syncing = true
	s.wg.Add(1)
	return true
}

// end освобождает слот. Запомненный повтор выполняется в контексте
// цикла движка, поэтому Stop его отменяет.
func (s *Service) end() {
	s.mu.Lock()
	rerun := s.rerun && s.running
	s.rerun = false
	ctx := s.loopCtx
	if rerun {
		s.wg.Add(1)
	} else {
		s.syncing = false
	}
	s.mu.Unlock()

	if !rerun {
		return
	}

	s.log.Debug("running remembered sync cycle")
	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
		s.end()
	}()
}

// RunCycle выполняет один цикл синхронно. Ошибки не возвращаются,
// а попадают в статус.
func (s *Service) RunCycle(ctx context.Context) CycleReport {
	if !s.begin(false, false) {
		return CycleReport{Outcome: CycleBusy}
	}
	defer s.wg.Done()

	report := s.cycle(ctx)
	s.end()
	return report
}

func (s *Service) cycle(ctx context.Context) CycleReport {
	if !s.conn.IsOnline() {
		s.log.Debug("sync skipped, offline")
		return CycleReport{Outcome: CycleOffline}
	}

	now := s.now()

	s.stateMu.Lock()
	batch, err := s.batcher.Next(ctx, s.cfg.BatchSize, s.cfg.DeviceID, now)
	if err != nil {
		s.recordError(err, now)
		s.stateMu.Unlock()
		s.log.Error("failed to build batch", slog.Any("error", err))
		s.notify(ctx)
		return CycleReport{Outcome: CycleError, Errors: []error{err}}
	}
	s.stateMu.Unlock()

	if batch == nil {
		s.log.Debug("nothing to sync")
		return CycleReport{Outcome: CycleEmpty}
	}

	s.log.Info("sending batch", slog.Int("items", len(batch.Items)))

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	resp, sendErr := s.transport.Send(sendCtx, batch.Request())
	cancel()

	if sendErr != nil && resp == nil && errors.Is(ctx.Err(), context.Canceled) {
		s.log.Info("sync cycle cancelled", slog.Int("items", len(batch.Items)))
		return CycleReport{Outcome: CycleCancelled, Sent: len(batch.Items)}
	}

	applyCtx := context.WithoutCancel(ctx)
	outcomes := OutcomesFor(batch, resp, sendErr)
	done := s.now()

	s.stateMu.Lock()
	report := s.resolver.Apply(applyCtx, batch, outcomes, done)
	if resp != nil {
		s.lastSyncAt = done
		s.hint = resp.Hint()
	}
	if sendErr != nil {
		report.Outcome = CycleNetworkFailure
		report.Errors = append(report.Errors, sendErr)
		s.recordError(sendErr, done)
	}
	if err := s.persist(applyCtx); err != nil {
		report.Errors = append(report.Errors, err)
		s.recordError(err, done)
	}
	s.stateMu.Unlock()

	s.log.Info("sync cycle finished",
		slog.String("outcome", string(report.Outcome)),
		slog.Int("synced", report.Synced),
		slog.Int("conflicts", report.Conflicts),
		slog.Int("retried", report.Retried),
		slog.Int("failed", report.Failed),
	)

	s.notify(ctx)
	return report
}

// recordError вызывается под stateMu
func (s *Service) recordError(err error, at time.Time) {
	s.lastError = err.Error()
	s.lastErrorAt = at
}

// persist вызывается под stateMu
func (s *Service) persist(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, s.snapshot()); err != nil {
		s.log.Error("failed to persist sync state", slog.Any("error", err))
		return fmt.Errorf("failed to persist sync state: %w", err)
	}
	return nil
}

func (s *Service) snapshot() *State {
	return &State{
		Retries:    s.retries.Entries(),
		Failed:     s.failedLocked(),
		Conflicts:  s.conflictsLocked(),
		LastSyncAt: s.lastSyncAt,
	}
}

func (s *Service) notify(ctx context.Context) {
	s.mu.Lock()
	subs := append([]func(Status){}, s.onStatus...)
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	st := s.Status(ctx)
	for _, cb := range subs {
		cb(st)
	}
}

// Conflicts возвращает конфликты по времени обнаружения
func (s *Service) Conflicts() []ConflictRecord {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.conflictsLocked()
}

func (s *Service) conflictsLocked() []ConflictRecord {
	out := make([]ConflictRecord, 0, len(s.resolver.conflicts))
	for _, c := range s.resolver.conflicts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DetectedAt.Before(out[j].DetectedAt)
	})
	return out
}

// Failed возвращает неудачные элементы по времени падения
func (s *Service) Failed() []FailedItem {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.failedLocked()
}

func (s *Service) failedLocked() []FailedItem {
	out := make([]FailedItem, 0, len(s.resolver.failed))
	for _, f := range s.resolver.failed {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FailedAt.Before(out[j].FailedAt)
	})
	return out
}

// ResolveConflict применяет ручное решение и возвращает изменение
// в автоматическую отправку. Ошибка сохранения состояния не отменяет
// решение и попадает только в статус.
func (s *Service) ResolveConflict(ctx context.Context, changeID string, choice Choice) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if err := s.resolver.Resolve(ctx, changeID, choice); err != nil {
		return fmt.Errorf("failed to resolve conflict %s: %w", changeID, err)
	}

	s.log.Info("conflict resolved manually",
		slog.String("change_id", changeID),
		slog.String("choice", string(choice)),
	)
	s.persistAdvisory(ctx)
	return nil
}

// DismissFailed убирает элемент из хранилища неудачных
func (s *Service) DismissFailed(ctx context.Context, changeID string) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	if err := s.resolver.Dismiss(changeID); err != nil {
		return fmt.Errorf("failed to dismiss %s: %w", changeID, err)
	}
	s.persistAdvisory(ctx)
	return nil
}

// persistAdvisory вызывается под stateMu, когда изменение уже применено
// в памяти и откатывать его нечем
func (s *Service) persistAdvisory(ctx context.Context) {
	if err := s.persist(ctx); err != nil {
		s.recordError(err, s.now())
	}
}
