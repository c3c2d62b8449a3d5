package sync

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"fitsync/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.statusOp(), h.status)
	huma.Register(api, h.forceOp(), h.force)
	huma.Register(api, h.conflictsOp(), h.conflicts)
	huma.Register(api, h.resolveOp(), h.resolve)
	huma.Register(api, h.failedOp(), h.failed)
	huma.Register(api, h.dismissOp(), h.dismiss)
}

func (h *Handler) status(ctx context.Context, _ *statusInput) (*statusOutput, error) {
	return &statusOutput{Body: h.service.Status(ctx)}, nil
}

func (h *Handler) force(ctx context.Context, _ *forceInput) (*forceOutput, error) {
	result := h.service.ForceSync(ctx)

	status := http.StatusAccepted
	if result == sync.ForceAlreadyInProgress {
		status = http.StatusOK
	}

	return &forceOutput{
		Status: status,
		Body:   forceResponse{Result: result},
	}, nil
}

func (h *Handler) conflicts(_ context.Context, _ *conflictsInput) (*conflictsOutput, error) {
	return &conflictsOutput{
		Body: conflictsResponse{Conflicts: h.service.Conflicts()},
	}, nil
}

func (h *Handler) resolve(ctx context.Context, input *resolveInput) (*output, error) {
	err := h.service.ResolveConflict(ctx, input.ID, input.Body.Choice)
	switch {
	case err == nil:
	case errors.Is(err, sync.ErrConflictNotFound):
		return nil, huma.Error404NotFound(err.Error())
	case errors.Is(err, sync.ErrInvalidChoice):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	default:
		h.log.Error("failed to resolve conflict", slog.String("change_id", input.ID), slog.Any("error", err))
		return &output{Body: response{Status: "Error", Error: err.Error()}}, nil
	}

	return &output{Body: response{Status: "Ok"}}, nil
}

func (h *Handler) failed(_ context.Context, _ *failedInput) (*failedOutput, error) {
	return &failedOutput{
		Body: failedResponse{Failed: h.service.Failed()},
	}, nil
}

func (h *Handler) dismiss(ctx context.Context, input *dismissInput) (*output, error) {
	err := h.service.DismissFailed(ctx, input.ID)
	switch {
	case err == nil:
	case errors.Is(err, sync.ErrFailedItemNotFound):
		return nil, huma.Error404NotFound(err.Error())
	default:
		h.log.Error("failed to dismiss failed change", slog.String("change_id", input.ID), slog.Any("error", err))
		return &output{Body: response{Status: "Error", Error: err.Error()}}, nil
	}

	return &output{Body: response{Status: "Ok"}}, nil
}
