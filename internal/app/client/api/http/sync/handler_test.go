package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/sync"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Start(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockService) Stop() {
	m.Called()
}

func (m *MockService) ForceSync(ctx context.Context) sync.ForceResult {
	args := m.Called(ctx)
	return args.Get(0).(sync.ForceResult)
}

func (m *MockService) Status(ctx context.Context) sync.Status {
	args := m.Called(ctx)
	return args.Get(0).(sync.Status)
}

func (m *MockService) Conflicts() []sync.ConflictRecord {
	args := m.Called()
	return args.Get(0).([]sync.ConflictRecord)
}

func (m *MockService) Failed() []sync.FailedItem {
	args := m.Called()
	return args.Get(0).([]sync.FailedItem)
}

func (m *MockService) ResolveConflict(ctx context.Context, changeID string, choice sync.Choice) error {
	args := m.Called(ctx, changeID, choice)
	return args.Error(0)
}

func (m *MockService) DismissFailed(ctx context.Context, changeID string) error {
	args := m.Called(ctx, changeID)
	return args.Error(0)
}

func newTestAPI(t *testing.T, svc sync.Servicer) humatest.TestAPI {
	_, api := humatest.New(t)
	NewHandler(svc, slog.Default(), huma.Middlewares{}).SetupRoutes(api)
	return api
}

func TestHandler_Status(t *testing.T) {
	svc := new(MockService)
	lastSync := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.On("Status", mock.Anything).Return(sync.Status{
		IsOnline:     true,
		LastSyncAt:   lastSync,
		PendingCount: 4,
		FailedCount:  1,
	})

	api := newTestAPI(t, svc)
	resp := api.Get("/api/v1/sync/status")
	require.Equal(t, http.StatusOK, resp.Code)

	var got sync.Status
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	assert.True(t, got.IsOnline)
	assert.Equal(t, 4, got.PendingCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.True(t, lastSync.Equal(got.LastSyncAt))
	svc.AssertExpectations(t)
}

func TestHandler_Force(t *testing.T) {
	tests := []struct {
		name       string
		result     sync.ForceResult
		wantStatus int
	}{
		{name: "started", result: sync.ForceStarted, wantStatus: http.StatusAccepted},
		{name: "already in progress", result: sync.ForceAlreadyInProgress, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ForceSync", mock.Anything).Return(tt.result)

			api := newTestAPI(t, svc)
			resp := api.Post("/api/v1/sync/force")

			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.Contains(t, resp.Body.String(), string(tt.result))
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Conflicts(t *testing.T) {
	svc := new(MockService)
	svc.On("Conflicts").Return([]sync.ConflictRecord{
		{
			Conflict: sync.Conflict{
				Change:        change.PendingChange{ID: "c1", Domain: "workout", EntityID: "w1", Action: change.ActionUpdate},
				ServerVersion: 7,
			},
			DetectedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	})

	api := newTestAPI(t, svc)
	resp := api.Get("/api/v1/sync/conflicts")
	require.Equal(t, http.StatusOK, resp.Code)

	var got conflictsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Conflicts, 1)
	assert.Equal(t, "c1", got.Conflicts[0].Change.ID)
	assert.Equal(t, int64(7), got.Conflicts[0].ServerVersion)
}

func TestHandler_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		choice     sync.Choice
		err        error
		wantStatus int
		wantBody   string
	}{
		{name: "resolved", choice: sync.ChoiceLocal, wantStatus: http.StatusOK, wantBody: `"Ok"`},
		{name: "not found", choice: sync.ChoiceServer, err: fmt.Errorf("failed to resolve conflict c1: %w", sync.ErrConflictNotFound), wantStatus: http.StatusNotFound},
		{name: "storage error", choice: sync.ChoiceDiscard, err: errors.New("disk full"), wantStatus: http.StatusOK, wantBody: "disk full"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ResolveConflict", mock.Anything, "c1", tt.choice).Return(tt.err)

			api := newTestAPI(t, svc)
			resp := api.Post("/api/v1/sync/conflicts/c1/resolve", map[string]any{"choice": tt.choice})

			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.wantBody != "" {
				assert.Contains(t, resp.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_Resolve_RejectsUnknownChoice(t *testing.T) {
	svc := new(MockService)

	api := newTestAPI(t, svc)
	resp := api.Post("/api/v1/sync/conflicts/c1/resolve", map[string]any{"choice": "merge"})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	svc.AssertNotCalled(t, "ResolveConflict", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_FailedAndDismiss(t *testing.T) {
	svc := new(MockService)
	svc.On("Failed").Return([]sync.FailedItem{
		{Change: change.PendingChange{ID: "f1", Domain: "payments"}, Reason: "card declined", Kind: sync.FailurePermanent},
	})
	svc.On("DismissFailed", mock.Anything, "f1").Return(nil)
	svc.On("DismissFailed", mock.Anything, "missing").Return(sync.ErrFailedItemNotFound)

	api := newTestAPI(t, svc)

	resp := api.Get("/api/v1/sync/failed")
	require.Equal(t, http.StatusOK, resp.Code)
	var got failedResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
	require.Len(t, got.Failed, 1)
	assert.Equal(t, "card declined", got.Failed[0].Reason)

	resp = api.Delete("/api/v1/sync/failed/f1")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = api.Delete("/api/v1/sync/failed/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	svc.AssertExpectations(t)
}
