package change

import (
	"encoding/json"
	"time"
)

// Action тип операции над сущностью
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid проверяет, что действие из поддерживаемого набора
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// PendingChange локальное изменение, ожидающее отправки на сервер
type PendingChange struct {
	ID           string          `json:"id"`
	Domain       string          `json:"domain"`
	EntityID     string          `json:"entityId"`
	Action       Action          `json:"action"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
	DeviceID     string          `json:"deviceId,omitempty"`
	LocalVersion int64           `json:"localVersion"`
	BaseVersion  int64           `json:"baseVersion,omitempty"`
	Overwrite    bool            `json:"overwrite,omitempty"`
}

// Key ключ коалесцирования: одна запись на сущность домена
func (c PendingChange) Key() string {
	return c.Domain + "/" + c.EntityID
}

// Ref returns a clear reference pinned to the current local version.
func (c PendingChange) Ref() Ref {
	return Ref{ID: c.ID, LocalVersion: c.LocalVersion}
}

// Ref ссылка на изменение для очистки.
// LocalVersion == 0 очищает запись безусловно.
type Ref struct {
	ID           string `json:"id"`
	LocalVersion int64  `json:"localVersion,omitempty"`
}

// Refs собирает ссылки на переданные изменения
func Refs(changes ...PendingChange) []Ref {
	refs := make([]Ref, 0, len(changes))
	for _, c := range changes {
		refs = append(refs, c.Ref())
	}
	return refs
}
