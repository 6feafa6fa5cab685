package ratelimit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jsodeh/konvato/internal/metrics"
)

// Decision is the outcome of an admission check
type Decision struct {
	Admitted   bool
	RetryAfter time.Duration
}

// SlidingWindow is a per-client hard sliding-window limiter: no token-bucket
// burst allowance, so admission is predictable. It keeps an ordered list of
// request instants per client, pruned to the trailing window; memory is
// bounded by the number of active clients.
type SlidingWindow struct {
	mu      sync.Mutex
	clients map[string][]time.Time
	limit   int
	window  time.Duration
	logger  *zap.Logger

	// now is overridable in tests
	now func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSlidingWindow creates a limiter admitting at most limit requests per
// client within the trailing window, and starts the idle-client sweep
func NewSlidingWindow(limit int, window, sweepFreq time.Duration, logger *zap.Logger) *SlidingWindow {
	l := &SlidingWindow{
		clients: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}

	go l.startSweepTask(sweepFreq)

	return l
}

// Allow decides whether a client's request is admitted. Rejections report how
// long until the oldest request leaves the window.
func (l *SlidingWindow) Allow(clientID string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	stamps := l.clients[clientID]
	pruned := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			pruned = append(pruned, stamp)
		}
	}

	if len(pruned) >= l.limit {
		l.clients[clientID] = pruned
		// A non-positive limit rejects everything; there is no oldest stamp
		// to wait out, so the full window is the hint
		retryAfter := l.window
		if len(pruned) > 0 {
			retryAfter = pruned[0].Sub(cutoff)
		}
		metrics.RateLimitRejections.Inc()
		l.logger.Debug("Rate limit exceeded",
			zap.String("client", clientID),
			zap.Int("limit", l.limit),
			zap.Duration("retry_after", retryAfter))
		return Decision{Admitted: false, RetryAfter: retryAfter}
	}

	l.clients[clientID] = append(pruned, now)
	return Decision{Admitted: true}
}

// sweep drops clients whose windows have fully drained, keeping memory
// bounded by active-client count
func (l *SlidingWindow) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.window)
	removed := 0
	for client, stamps := range l.clients {
		idle := true
		for _, stamp := range stamps {
			if stamp.After(cutoff) {
				idle = false
				break
			}
		}
		if idle {
			delete(l.clients, client)
			removed++
		}
	}

	if removed > 0 {
		l.logger.Debug("Swept idle rate-limit clients", zap.Int("removed", removed))
	}
}

func (l *SlidingWindow) startSweepTask(freq time.Duration) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// Stop stops the background sweep task
func (l *SlidingWindow) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}
