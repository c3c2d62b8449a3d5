package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryScheduler_Backoff(t *testing.T) {
	r := NewRetryScheduler(RetryConfig{BaseDelay: time.Second, MaxDelay: 10 * time.Second, MaxRetries: 3})

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{retryCount: 0, want: time.Second},
		{retryCount: 1, want: 2 * time.Second},
		{retryCount: 2, want: 4 * time.Second},
		{retryCount: 3, want: 8 * time.Second},
		{retryCount: 4, want: 10 * time.Second},
		{retryCount: 80, want: 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Backoff(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}

func TestRetryScheduler_ScheduleUntilExhausted(t *testing.T) {
	r := NewRetryScheduler(RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute, MaxRetries: 3})
	item := pending("a", "workout", 0)
	now := testEpoch

	entry, exhausted := r.Schedule(item, "timeout", now)
	assert.False(t, exhausted)
	assert.Equal(t, 1, entry.RetryCount)
	assert.Equal(t, now.Add(time.Second), entry.NextAttemptAt)
	assert.True(t, r.Blocked("a", now.Add(500*time.Millisecond)))
	assert.False(t, r.Blocked("a", now.Add(time.Second)))

	now = now.Add(time.Second)
	entry, exhausted = r.Schedule(item, "timeout", now)
	assert.False(t, exhausted)
	assert.Equal(t, 2, entry.RetryCount)
	assert.Equal(t, now.Add(2*time.Second), entry.NextAttemptAt)

	now = now.Add(2 * time.Second)
	entry, exhausted = r.Schedule(item, "timeout", now)
	assert.True(t, exhausted)
	assert.Equal(t, 3, entry.RetryCount)
	assert.Equal(t, 0, r.Len())
	assert.False(t, r.Blocked("a", now))
}

func TestRetryScheduler_PruneAndRestore(t *testing.T) {
	r := NewRetryScheduler(RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute, MaxRetries: 5})
	r.Schedule(pending("a", "workout", 0), "x", testEpoch)
	r.Schedule(pending("b", "workout", 0), "x", testEpoch)

	removed := r.Prune(map[string]struct{}{"a": {}})

	assert.Equal(t, 1, removed)
	_, ok := r.Get("b")
	assert.False(t, ok)

	other := NewRetryScheduler(RetryConfig{BaseDelay: time.Second, MaxDelay: time.Minute, MaxRetries: 5})
	other.Restore(r.Entries())
	entry, ok := other.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, entry.RetryCount)
}
