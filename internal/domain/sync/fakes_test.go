package sync

import (
	"context"
	"encoding/json"
	"sort"
	gosync "sync"
	"time"

	"fitsync/internal/domain/change"

	"github.com/stretchr/testify/mock"
)

type fakeSource struct {
	domain string
	policy Policy

	mu         gosync.Mutex
	items      []change.PendingChange
	overwrites []Conflict
	resolveErr error
}

func newFakeSource(domain string, policy Policy, items ...change.PendingChange) *fakeSource {
	return &fakeSource{domain: domain, policy: policy, items: items}
}

func (f *fakeSource) Domain() string { return f.domain }
func (f *fakeSource) Policy() Policy { return f.policy }

func (f *fakeSource) add(c change.PendingChange) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, c)
}

func (f *fakeSource) List(_ context.Context) ([]change.PendingChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]change.PendingChange{}, f.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSource) Clear(_ context.Context, refs []change.Ref) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range refs {
		kept := f.items[:0]
		for _, item := range f.items {
			if item.ID == ref.ID && (ref.LocalVersion == 0 || item.LocalVersion <= ref.LocalVersion) {
				continue
			}
			kept = append(kept, item)
		}
		f.items = kept
	}
	return nil
}

func (f *fakeSource) ResolveConflict(ctx context.Context, c Conflict, p Policy) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	switch p {
	case PolicyPreferServer:
		f.mu.Lock()
		f.overwrites = append(f.overwrites, c)
		f.mu.Unlock()
		return f.Clear(ctx, []change.Ref{c.Change.Ref()})
	case PolicyPreferLocal:
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.items {
			if f.items[i].ID == c.Change.ID {
				f.items[i].Overwrite = true
				f.items[i].BaseVersion = c.ServerVersion
			}
		}
		return nil
	}
	return ErrUnknownPolicy
}

func (f *fakeSource) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeTransport struct {
	mu       gosync.Mutex
	requests []*BatchRequest
	respond  func(req *BatchRequest) (*BatchResponse, error)
	gate     chan struct{}
	started  chan struct{}
}

func newFakeTransport(respond func(req *BatchRequest) (*BatchResponse, error)) *fakeTransport {
	return &fakeTransport{respond: respond, started: make(chan struct{}, 16)}
}

func (f *fakeTransport) Send(ctx context.Context, req *BatchRequest) (*BatchResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate := f.gate
	f.mu.Unlock()

	f.started <- struct{}{}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.respond(req)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) lastRequest() *BatchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func syncAll(req *BatchRequest) (*BatchResponse, error) {
	resp := &BatchResponse{Success: true, ServerTimestamp: time.Now()}
	for _, item := range req.Items {
		resp.SyncedIDs = append(resp.SyncedIDs, item.ID)
	}
	return resp, nil
}

type fakeConn struct {
	mu     gosync.Mutex
	online bool
	cbs    []func(bool)
}

func (f *fakeConn) IsOnline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeConn) OnChange(cb func(bool)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cbs = append(f.cbs, cb)
}

func (f *fakeConn) set(online bool) {
	f.mu.Lock()
	if f.online == online {
		f.mu.Unlock()
		return
	}
	f.online = online
	cbs := append([]func(bool){}, f.cbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(online)
	}
}

type testClock struct {
	mu gosync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Load(ctx context.Context) (*State, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*State), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, state *State) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

var testEpoch = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func pending(id, domain string, offset time.Duration) change.PendingChange {
	return change.PendingChange{
		ID:           id,
		Domain:       domain,
		EntityID:     "entity-" + id,
		Action:       change.ActionUpdate,
		Payload:      json.RawMessage(`{"id":"` + id + `"}`),
		CreatedAt:    testEpoch.Add(offset),
		LocalVersion: 1,
	}
}
