package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) (*SlidingWindow, *time.Time) {
	t.Helper()
	l := NewSlidingWindow(limit, window, time.Hour, zap.NewNop())
	t.Cleanup(l.Stop)

	current := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestSlidingWindow_AdmitsUpToLimit(t *testing.T) {
	l, _ := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("client").Admitted, "request %d", i+1)
	}
}

func TestSlidingWindow_RejectsOverLimitWithRetryAfter(t *testing.T) {
	l, current := newTestLimiter(t, 3, time.Minute)

	l.Allow("client")
	*current = current.Add(10 * time.Second)
	l.Allow("client")
	*current = current.Add(10 * time.Second)
	l.Allow("client")

	// Fourth request 20s into the window: the oldest stamp exits the window
	// in 40s
	decision := l.Allow("client")
	require.False(t, decision.Admitted)
	assert.Equal(t, 40*time.Second, decision.RetryAfter)
}

func TestSlidingWindow_AdmitsAfterWindowElapses(t *testing.T) {
	l, current := newTestLimiter(t, 2, time.Minute)

	l.Allow("client")
	l.Allow("client")
	require.False(t, l.Allow("client").Admitted)

	*current = current.Add(time.Minute + time.Second)

	assert.True(t, l.Allow("client").Admitted)
}

func TestSlidingWindow_ZeroLimitRejectsEverything(t *testing.T) {
	l, _ := newTestLimiter(t, 0, time.Minute)

	decision := l.Allow("client")
	require.False(t, decision.Admitted)
	assert.Equal(t, time.Minute, decision.RetryAfter, "no stamp to wait out, the full window is the hint")
}

func TestSlidingWindow_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 1, time.Minute)

	require.True(t, l.Allow("a").Admitted)
	require.False(t, l.Allow("a").Admitted)
	assert.True(t, l.Allow("b").Admitted)
}

func TestSlidingWindow_SweepDropsIdleClients(t *testing.T) {
	l, current := newTestLimiter(t, 5, time.Minute)

	l.Allow("idle")
	l.Allow("active")

	*current = current.Add(2 * time.Minute)
	l.Allow("active")
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	_, idleKept := l.clients["idle"]
	_, activeKept := l.clients["active"]
	assert.False(t, idleKept, "drained client must be garbage-collected")
	assert.True(t, activeKept)
}
