package change

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/ledger"
)

// Registry точка записи изменений доменов
type Registry interface {
	Append(ctx context.Context, domain string, c change.PendingChange) (change.PendingChange, error)
	List(ctx context.Context, domain string) ([]change.PendingChange, error)
	Domains() []string
}

type Handler struct {
	registry   Registry
	deviceID   string
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(registry Registry, deviceID string, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		registry:   registry,
		deviceID:   deviceID,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.domainsOp(), h.domains)
	huma.Register(api, h.appendOp(), h.append)
	huma.Register(api, h.listOp(), h.list)
}

func (h *Handler) append(ctx context.Context, input *appendInput) (*appendOutput, error) {
	var payload json.RawMessage
	if input.Body.Payload != nil {
		raw, err := json.Marshal(input.Body.Payload)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("payload must be valid JSON")
		}
		payload = raw
	}

	entry, err := h.registry.Append(ctx, input.Domain, change.PendingChange{
		EntityID:    input.Body.EntityID,
		Action:      input.Body.Action,
		Payload:     payload,
		BaseVersion: input.Body.BaseVersion,
		DeviceID:    h.deviceID,
	})
	switch {
	case errors.Is(err, ledger.ErrUnknownDomain):
		return nil, huma.Error404NotFound(err.Error())
	case change.IsValidation(err):
		return nil, huma.Error422UnprocessableEntity(err.Error())
	case err != nil && entry.ID == "":
		h.log.Error("failed to append change", slog.String("domain", input.Domain), slog.Any("error", err))
		return nil, huma.Error500InternalServerError("failed to append change", err)
	case err != nil:
		// изменение уже в очереди, отстало только локальное состояние
		h.log.Warn("change queued but local state not updated",
			slog.String("domain", input.Domain),
			slog.String("change_id", entry.ID),
			slog.Any("error", err),
		)
	}

	status := http.StatusCreated
	if entry.LocalVersion > 1 {
		status = http.StatusOK
	}
	return &appendOutput{Status: status, Body: entry}, nil
}

func (h *Handler) list(ctx context.Context, input *listInput) (*listOutput, error) {
	items, err := h.registry.List(ctx, input.Domain)
	if errors.Is(err, ledger.ErrUnknownDomain) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list changes", err)
	}
	if items == nil {
		items = []change.PendingChange{}
	}

	return &listOutput{Body: listResponse{Domain: input.Domain, Changes: items}}, nil
}

func (h *Handler) domains(_ context.Context, _ *domainsInput) (*domainsOutput, error) {
	return &domainsOutput{Body: domainsResponse{Domains: h.registry.Domains()}}, nil
}
