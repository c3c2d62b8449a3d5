package kvrepo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fitsync/internal/domain/change"
	"fitsync/internal/domain/ledger"
	"fitsync/internal/domain/sync"
	"fitsync/internal/infrastructure/storage"
	"fitsync/internal/infrastructure/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestLedgerRepository_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	repo := NewLedgerRepository(kv, slog.Default())

	l := ledger.New("workout", repo, slog.Default())
	c, err := l.Append(ctx, change.PendingChange{EntityID: "w1", Action: change.ActionCreate, Payload: json.RawMessage(`{"sets":3}`)})
	require.NoError(t, err)

	restarted := ledger.New("workout", repo, slog.Default())
	require.NoError(t, restarted.Load(ctx))
	items := restarted.List(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, c.ID, items[0].ID)
	assert.JSONEq(t, `{"sets":3}`, string(items[0].Payload))

	_, err = restarted.Clear(ctx, []change.Ref{{ID: c.ID}})
	require.NoError(t, err)
	_, err = kv.Get(ctx, ledgerPrefix+"workout")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewStateRepository(memory.New())

	st, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, st)

	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	want := &sync.State{
		Retries:    []sync.RetryEntry{{Change: change.PendingChange{ID: "a"}, RetryCount: 1, NextAttemptAt: at}},
		Failed:     []sync.FailedItem{{Change: change.PendingChange{ID: "b"}, Kind: sync.FailurePermanent, FailedAt: at}},
		Conflicts:  []sync.ConflictRecord{{Conflict: sync.Conflict{Change: change.PendingChange{ID: "c"}, ServerVersion: 2}, DetectedAt: at}},
		LastSyncAt: at,
	}
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Retries[0].Change.ID)
	assert.Equal(t, sync.FailurePermanent, got.Failed[0].Kind)
	assert.Equal(t, int64(2), got.Conflicts[0].ServerVersion)
	assert.True(t, at.Equal(got.LastSyncAt))
}

func TestDomainStore_ApplyServerState(t *testing.T) {
	ctx := context.Background()
	store := NewDomainStore(memory.New(), slog.Default())

	require.NoError(t, store.Put(ctx, "profile", "me", json.RawMessage(`{"name":"local"}`)))
	require.NoError(t, store.ApplyServerState(ctx, "profile", "me", json.RawMessage(`{"name":"server"}`), 2))

	e, err := store.Get(ctx, "profile", "me")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"server"}`, string(e.Payload))
	assert.Equal(t, int64(2), e.ServerVersion)

	require.NoError(t, store.ApplyServerState(ctx, "profile", "me", nil, 3))
	_, err = store.Get(ctx, "profile", "me")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeviceID_IsStable(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	first, err := DeviceID(ctx, kv)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	assert.NoError(t, err)

	second, err := DeviceID(ctx, kv)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
