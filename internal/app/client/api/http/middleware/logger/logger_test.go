package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type resolveInput struct {
	ID string `path:"id"`
}

type changesInput struct {
	Domain string `path:"domain"`
}

func newLoggedAPI(t *testing.T) (humatest.TestAPI, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	log := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mw := huma.Middlewares{New(log).Middleware()}

	_, api := humatest.New(t)
	huma.Register(api, huma.Operation{
		OperationID: "change-list",
		Method:      http.MethodGet,
		Path:        "/api/v1/domains/{domain}/changes",
		Middlewares: mw,
	}, func(_ context.Context, _ *changesInput) (*struct{}, error) {
		return nil, nil
	})
	huma.Register(api, huma.Operation{
		OperationID: "sync-resolve",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/conflicts/{id}/resolve",
		Middlewares: mw,
	}, func(_ context.Context, _ *resolveInput) (*struct{}, error) {
		return nil, huma.Error500InternalServerError("ledger unavailable")
	})
	return api, buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLogger_TagsDomain(t *testing.T) {
	api, buf := newLoggedAPI(t)

	resp := api.Get("/api/v1/domains/workout/changes")
	require.Less(t, resp.Code, http.StatusMultipleChoices)

	entry := lastEntry(t, buf)
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "control_api", entry["component"])
	assert.Equal(t, "change-list", entry["operation"])
	assert.Equal(t, "workout", entry["domain"])
	assert.NotContains(t, entry, "change_id")
}

func TestLogger_FailedResolveIsError(t *testing.T) {
	api, buf := newLoggedAPI(t)

	resp := api.Post("/api/v1/sync/conflicts/c-42/resolve")
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	entry := lastEntry(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "sync-resolve", entry["operation"])
	assert.Equal(t, "c-42", entry["change_id"])
	assert.Equal(t, float64(http.StatusInternalServerError), entry["status"])
}

func TestLevel(t *testing.T) {
	tests := []struct {
		method string
		status int
		want   slog.Level
	}{
		{http.MethodGet, http.StatusOK, slog.LevelDebug},
		{http.MethodPost, http.StatusAccepted, slog.LevelInfo},
		{http.MethodDelete, http.StatusNoContent, slog.LevelInfo},
		{http.MethodPost, http.StatusUnprocessableEntity, slog.LevelWarn},
		{http.MethodGet, http.StatusNotFound, slog.LevelWarn},
		{http.MethodGet, http.StatusServiceUnavailable, slog.LevelError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.method, tt.status), "%s %d", tt.method, tt.status)
	}
}
