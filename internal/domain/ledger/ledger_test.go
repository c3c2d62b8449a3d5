package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fitsync/internal/domain/change"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load(ctx context.Context, domain string) ([]change.PendingChange, error) {
	args := m.Called(ctx, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]change.PendingChange), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, domain string, changes []change.PendingChange) error {
	args := m.Called(ctx, domain, changes)
	return args.Error(0)
}

func newTestLedger(repo Repository) (*Ledger, *time.Time) {
	l := New("workout", repo, slog.Default())
	clock := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func update(entity, payload string) change.PendingChange {
	return change.PendingChange{EntityID: entity, Action: change.ActionUpdate, Payload: json.RawMessage(payload)}
}

func TestLedger_AppendCoalesces(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger(nil)

	first, err := l.Append(ctx, update("w1", `{"reps":8}`))
	require.NoError(t, err)

	*clock = clock.Add(time.Minute)
	_, err = l.Append(ctx, update("w1", `{"reps":10}`))
	require.NoError(t, err)

	*clock = clock.Add(time.Minute)
	last, err := l.Append(ctx, update("w1", `{"reps":12}`))
	require.NoError(t, err)

	items := l.List(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, first.CreatedAt, items[0].CreatedAt)
	assert.Equal(t, int64(3), items[0].LocalVersion)
	assert.JSONEq(t, `{"reps":12}`, string(items[0].Payload))
	assert.Equal(t, last, items[0])
	assert.Equal(t, "workout", items[0].Domain)
}

func TestLedger_CoalesceActions(t *testing.T) {
	tests := []struct {
		name  string
		first change.Action
		next  change.Action
		want  change.Action
	}{
		{name: "create then update stays create", first: change.ActionCreate, next: change.ActionUpdate, want: change.ActionCreate},
		{name: "create then delete", first: change.ActionCreate, next: change.ActionDelete, want: change.ActionDelete},
		{name: "update then delete", first: change.ActionUpdate, next: change.ActionDelete, want: change.ActionDelete},
		{name: "delete then create", first: change.ActionDelete, next: change.ActionCreate, want: change.ActionCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l, _ := newTestLedger(nil)

			_, err := l.Append(ctx, change.PendingChange{EntityID: "e", Action: tt.first, Payload: json.RawMessage(`{}`)})
			require.NoError(t, err)
			got, err := l.Append(ctx, change.PendingChange{EntityID: "e", Action: tt.next, Payload: json.RawMessage(`{}`)})
			require.NoError(t, err)

			assert.Equal(t, tt.want, got.Action)
			assert.Equal(t, 1, l.Len())
		})
	}
}

func TestLedger_AppendRejectsInvalid(t *testing.T) {
	l, _ := newTestLedger(nil)

	_, err := l.Append(context.Background(), update("w1", `not json`))

	assert.ErrorIs(t, err, change.ErrInvalidPayload)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_DrainOrderAndBound(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLedger(nil)

	for _, id := range []string{"a", "b", "c"} {
		_, err := l.Append(ctx, update(id, `{}`))
		require.NoError(t, err)
		*clock = clock.Add(time.Second)
	}

	items := l.Drain(ctx, 2)

	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].EntityID)
	assert.Equal(t, "b", items[1].EntityID)
	assert.Equal(t, 3, l.Len(), "drain must not remove entries")
}

func TestLedger_ClearKeepsEditsMadeInFlight(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(nil)

	sent, err := l.Append(ctx, update("w1", `{"v":1}`))
	require.NoError(t, err)
	_, err = l.Append(ctx, update("w1", `{"v":2}`))
	require.NoError(t, err)

	removed, err := l.Clear(ctx, []change.Ref{sent.Ref()})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	items := l.List(ctx)
	require.Len(t, items, 1)
	survivor := items[0]
	assert.NotEqual(t, sent.ID, survivor.ID, "edited change must not keep the sent id")
	assert.Equal(t, int64(2), survivor.LocalVersion)
	assert.JSONEq(t, `{"v":2}`, string(survivor.Payload))

	removed, err = l.Clear(ctx, []change.Ref{{ID: sent.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = l.Clear(ctx, []change.Ref{survivor.Ref()})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_Rebase(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(nil)

	c, err := l.Append(ctx, update("w1", `{}`))
	require.NoError(t, err)

	require.NoError(t, l.Rebase(ctx, c.ID, 7))

	items := l.List(ctx)
	require.Len(t, items, 1)
	assert.True(t, items[0].Overwrite)
	assert.Equal(t, int64(7), items[0].BaseVersion)

	assert.ErrorIs(t, l.Rebase(ctx, "missing", 1), ErrChangeNotFound)
}

func TestLedger_PersistsBeforeVisible(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	l, _ := newTestLedger(repo)

	repo.On("Save", ctx, "workout", mock.AnythingOfType("[]change.PendingChange")).
		Return(errors.New("disk full")).Once()

	_, err := l.Append(ctx, update("w1", `{}`))

	assert.Error(t, err)
	assert.Equal(t, 0, l.Len())
	repo.AssertExpectations(t)
}

func TestLedger_Load(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	l, _ := newTestLedger(repo)

	stored := []change.PendingChange{
		{ID: "1", Domain: "workout", EntityID: "w1", Action: change.ActionUpdate, LocalVersion: 2},
	}
	repo.On("Load", ctx, "workout").Return(stored, nil)

	require.NoError(t, l.Load(ctx))

	assert.Equal(t, stored, l.List(ctx))
	repo.AssertExpectations(t)
}
