package ledger

import (
	"context"
	"encoding/json"
	"testing"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockLocalState struct {
	mock.Mock
}

func (m *MockLocalState) Put(ctx context.Context, domain, entityID string, payload json.RawMessage) error {
	args := m.Called(ctx, domain, entityID, payload)
	return args.Error(0)
}

func (m *MockLocalState) Delete(ctx context.Context, domain, entityID string) error {
	args := m.Called(ctx, domain, entityID)
	return args.Error(0)
}

func TestRegistry_Append(t *testing.T) {
	ctx := context.Background()
	local := new(MockLocalState)
	workout := NewSource(New("workout", nil, slog.Default()), sync.PolicyPreferLocal, nil)
	profile := NewSource(New("profile", nil, slog.Default()), sync.PolicyPreferServer, nil)
	r := NewRegistry(local, workout, profile)

	payload := json.RawMessage(`{"distance":5}`)
	local.On("Put", ctx, "workout", "run-1", payload).Return(nil).Once()
	local.On("Delete", ctx, "workout", "run-1").Return(nil).Once()

	_, err := r.Append(ctx, "workout", change.PendingChange{EntityID: "run-1", Action: change.ActionCreate, Payload: payload})
	require.NoError(t, err)
	entry, err := r.Append(ctx, "workout", change.PendingChange{EntityID: "run-1", Action: change.ActionDelete})
	require.NoError(t, err)
	assert.Equal(t, change.ActionDelete, entry.Action)

	items, err := r.List(ctx, "workout")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = r.Append(ctx, "payments", change.PendingChange{EntityID: "x", Action: change.ActionDelete})
	assert.ErrorIs(t, err, ErrUnknownDomain)
	_, err = r.List(ctx, "payments")
	assert.ErrorIs(t, err, ErrUnknownDomain)

	assert.Equal(t, []string{"workout", "profile"}, r.Domains())
	sources := r.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, sync.PolicyPreferServer, sources[1].Policy())
	local.AssertExpectations(t)
}
