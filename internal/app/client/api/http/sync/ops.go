package sync

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) statusOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Статус синхронизации",
		Description: "Возвращает согласованный снимок состояния движка синхронизации",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) forceOp() huma.Operation {
	return huma.Operation{
		OperationID:   "sync-force",
		Method:        http.MethodPost,
		Path:          "/api/v1/sync/force",
		Summary:       "Принудительная синхронизация",
		Description:   "Запускает цикл в фоне. Если цикл уже идёт, новый не ставится в очередь",
		Tags:          []string{"sync"},
		DefaultStatus: http.StatusAccepted,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) conflictsOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-conflicts",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/conflicts",
		Summary:     "Конфликты синхронизации",
		Description: "Возвращает конфликты, ожидающие ручного решения",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) resolveOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-resolve-conflict",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/conflicts/{id}/resolve",
		Summary:     "Разрешить конфликт",
		Description: "Применяет ручное решение и возвращает изменение в автоматическую отправку",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) failedOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-failed",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/failed",
		Summary:     "Неудачные изменения",
		Description: "Возвращает изменения, которые больше не повторяются автоматически",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) dismissOp() huma.Operation {
	return huma.Operation{
		OperationID: "sync-dismiss-failed",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sync/failed/{id}",
		Summary:     "Убрать неудачное изменение",
		Tags:        []string{"sync"},
		Middlewares: h.middleware,
	}
}
