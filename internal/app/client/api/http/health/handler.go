package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"fitsync/internal/domain/sync"
)

type Handler struct {
	status     sync.StatusSource
	deviceID   string
	log        *slog.Logger
	middleware huma.Middlewares
}

// NewHandler status может быть nil, тогда отдаётся только "OK"
func NewHandler(status sync.StatusSource, deviceID string, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		status:     status,
		deviceID:   deviceID,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(ctx context.Context, _ *Input) (*Output, error) {
	h.log.Debug("health check request received")

	resp := Response{
		Status:   "OK",
		DeviceID: h.deviceID,
	}
	if h.status != nil {
		st := h.status.Status(ctx)
		resp.Online = st.IsOnline
		resp.LastSyncAt = st.LastSyncAt
	}

	return &Output{Body: resp}, nil
}
