package sync

import (
	"context"
	"encoding/json"
	"time"

	"fitsync/internal/domain/change"
)

// Policy стратегия разрешения конфликтов домена
type Policy string

const (
	PolicyPreferLocal  Policy = "preferLocal"
	PolicyPreferServer Policy = "preferServer"
	PolicyManual       Policy = "manual"
)

// ParsePolicy разбирает имя стратегии, пустое значение даёт manual
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyManual, nil
	case PolicyPreferLocal, PolicyPreferServer, PolicyManual:
		return Policy(s), nil
	}
	return "", ErrUnknownPolicy
}

// Result результат обработки элемента пакета сервером
type Result string

const (
	ResultSynced         Result = "synced"
	ResultConflict       Result = "conflict"
	ResultPermanentError Result = "permanentError"
	ResultRetryableError Result = "retryableError"
)

// Outcome исход синхронизации одного изменения
type Outcome struct {
	ChangeID      string          `json:"changeId"`
	Result        Result          `json:"result"`
	ServerVersion int64           `json:"serverVersion,omitempty"`
	ServerPayload json.RawMessage `json:"serverPayload,omitempty"`
	Message       string          `json:"errorMessage,omitempty"`
}

// Conflict расхождение локальной и серверной версии, передаётся домену
type Conflict struct {
	Change        change.PendingChange `json:"change"`
	ServerVersion int64                `json:"serverVersion"`
	ServerPayload json.RawMessage      `json:"serverPayload,omitempty"`
	Message       string               `json:"message,omitempty"`
}

// ConflictRecord конфликт, ожидающий ручного решения
type ConflictRecord struct {
	Conflict
	DetectedAt time.Time `json:"detectedAt"`
}

// Choice ручное решение по конфликту
type Choice string

const (
	ChoiceLocal   Choice = "local"
	ChoiceServer  Choice = "server"
	ChoiceDiscard Choice = "discard"
)

// Source контракт домена, поставляющего изменения движку.
// Движок никогда не меняет бизнес-состояние домена напрямую.
type Source interface {
	Domain() string
	Policy() Policy
	// List возвращает неотправленные изменения, упорядоченные по CreatedAt
	List(ctx context.Context) ([]change.PendingChange, error)
	// Clear удаляет подтверждённые изменения
	Clear(ctx context.Context, refs []change.Ref) error
	// ResolveConflict применяет выбранную стратегию к конфликту
	ResolveConflict(ctx context.Context, conflict Conflict, policy Policy) error
}

// Transport отправляет пакет удалённому серверу
type Transport interface {
	Send(ctx context.Context, req *BatchRequest) (*BatchResponse, error)
}

// Connectivity источник состояния сети
type Connectivity interface {
	IsOnline() bool
	OnChange(cb func(online bool))
}

// Batch пакет изменений для одной отправки, не сохраняется
type Batch struct {
	Items        []change.PendingChange
	DeviceID     string
	DispatchedAt time.Time
}

// Request собирает тело запроса для транспорта
func (b *Batch) Request() *BatchRequest {
	return &BatchRequest{
		DeviceID:  b.DeviceID,
		Items:     b.Items,
		Timestamp: b.DispatchedAt,
	}
}

// RetryEntry изменение, ожидающее повторной отправки
type RetryEntry struct {
	Change        change.PendingChange `json:"change"`
	RetryCount    int                  `json:"retryCount"`
	NextAttemptAt time.Time            `json:"nextAttemptAt"`
	LastError     string               `json:"lastError,omitempty"`
}

// FailureKind причина попадания в хранилище неудачных
type FailureKind string

const (
	FailurePermanent FailureKind = "permanent"
	FailureExhausted FailureKind = "exhausted"
)

// FailedItem терминальная ошибка, автоматически не повторяется
type FailedItem struct {
	Change     change.PendingChange `json:"change"`
	Reason     string               `json:"reason"`
	Kind       FailureKind          `json:"kind"`
	RetryCount int                  `json:"retryCount"`
	FailedAt   time.Time            `json:"failedAt"`
}

// State сохраняемое состояние движка
type State struct {
	Retries    []RetryEntry     `json:"retries"`
	Failed     []FailedItem     `json:"failed"`
	Conflicts  []ConflictRecord `json:"conflicts"`
	LastSyncAt time.Time        `json:"lastSyncAt"`
}

// Status производный снимок состояния синхронизации
type Status struct {
	IsOnline       bool      `json:"isOnline"`
	IsSyncing      bool      `json:"isSyncing"`
	LastSyncAt     time.Time `json:"lastSyncAt"`
	PendingCount   int       `json:"pendingCount"`
	ScheduledCount int       `json:"scheduledCount"`
	FailedCount    int       `json:"failedCount"`
	ConflictCount  int       `json:"conflictCount"`
	LastError      string    `json:"lastError,omitempty"`
	LastErrorAt    time.Time `json:"lastErrorAt"`
}

// ForceResult синхронный ответ на принудительную синхронизацию
type ForceResult string

const (
	ForceStarted           ForceResult = "started"
	ForceAlreadyInProgress ForceResult = "alreadyInProgress"
)

// CycleOutcome итог одного цикла синхронизации
type CycleOutcome string

const (
	CycleBusy           CycleOutcome = "busy"
	CycleOffline        CycleOutcome = "offline"
	CycleEmpty          CycleOutcome = "empty"
	CycleCompleted      CycleOutcome = "completed"
	CycleNetworkFailure CycleOutcome = "networkFailure"
	CycleCancelled      CycleOutcome = "cancelled"
	CycleError          CycleOutcome = "error"
)

// CycleReport сводка по циклу
type CycleReport struct {
	Outcome   CycleOutcome
	Sent      int
	Synced    int
	Conflicts int
	Failed    int
	Retried   int
	Errors    []error
}

// RetryConfig параметры экспоненциальной задержки
type RetryConfig struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	MaxRetries int
}

// Config конфигурация движка синхронизации
type Config struct {
	DeviceID       string
	Interval       time.Duration
	BatchSize      int
	RequestTimeout time.Duration
	Retry          RetryConfig
}

// DefaultConfig значения по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Interval:       5 * time.Minute,
		BatchSize:      50,
		RequestTimeout: 30 * time.Second,
		Retry: RetryConfig{
			BaseDelay:  time.Second,
			MaxDelay:   5 * time.Minute,
			MaxRetries: 3,
		},
	}
}

func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Interval <= 0 {
		out.Interval = d.Interval
	}
	if out.BatchSize <= 0 {
		out.BatchSize = d.BatchSize
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = d.RequestTimeout
	}
	if out.Retry.BaseDelay <= 0 {
		out.Retry.BaseDelay = d.Retry.BaseDelay
	}
	if out.Retry.MaxDelay <= 0 {
		out.Retry.MaxDelay = d.Retry.MaxDelay
	}
	if out.Retry.MaxRetries <= 0 {
		out.Retry.MaxRetries = d.Retry.MaxRetries
	}
	return &out
}
