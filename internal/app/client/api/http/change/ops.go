package change

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) appendOp() huma.Operation {
	return huma.Operation{
		OperationID:   "change-append",
		Method:        http.MethodPost,
		Path:          "/api/v1/domains/{domain}/changes",
		Summary:       "Записать локальное изменение",
		Description:   "Сохраняет новое состояние сущности и ставит изменение в очередь синхронизации домена",
		Tags:          []string{"changes"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   h.middleware,
	}
}

func (h *Handler) listOp() huma.Operation {
	return huma.Operation{
		OperationID: "change-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/{domain}/changes",
		Summary:     "Неотправленные изменения домена",
		Tags:        []string{"changes"},
		Middlewares: h.middleware,
	}
}

func (h *Handler) domainsOp() huma.Operation {
	return huma.Operation{
		OperationID: "change-domains",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains",
		Summary:     "Зарегистрированные домены",
		Tags:        []string{"changes"},
		Middlewares: h.middleware,
	}
}
