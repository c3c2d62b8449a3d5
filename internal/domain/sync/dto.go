package sync

import (
	"encoding/json"
	"time"

	"fitsync/internal/domain/change"
)

// BatchRequest тело запроса пакетной синхронизации
type BatchRequest struct {
	DeviceID  string                 `json:"deviceId"`
	Items     []change.PendingChange `json:"items"`
	Timestamp time.Time              `json:"timestamp"`
}

// BatchResponse структурированный ответ сервера
type BatchResponse struct {
	Success         bool           `json:"success"`
	SyncedIDs       []string       `json:"syncedIds"`
	Conflicts       []ConflictItem `json:"conflicts"`
	Errors          []ErrorItem    `json:"errors"`
	ServerTimestamp time.Time      `json:"serverTimestamp"`
	// NextSyncHint желаемая пауза до следующего цикла, в секундах
	NextSyncHint int `json:"nextSyncHint,omitempty"`
}

// ConflictItem конфликт версии по одному изменению
type ConflictItem struct {
	ID            string          `json:"id"`
	ServerVersion int64           `json:"serverVersion"`
	ServerPayload json.RawMessage `json:"serverPayload,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// ErrorItem ошибка обработки одного изменения
type ErrorItem struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// HasOutcomes сообщает, содержит ли ответ поэлементные результаты
func (r *BatchResponse) HasOutcomes() bool {
	return r != nil && len(r.SyncedIDs)+len(r.Conflicts)+len(r.Errors) > 0
}

// Hint возвращает подсказку сервера как длительность
func (r *BatchResponse) Hint() time.Duration {
	if r == nil || r.NextSyncHint <= 0 {
		return 0
	}
	return time.Duration(r.NextSyncHint) * time.Second
}
