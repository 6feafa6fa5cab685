package cache

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ttlEntry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is the in-process tier: a mutex-protected map with per-entry
// expiry. Reads treat expired entries as absent and evict them lazily; a
// periodic sweep reclaims entries nobody has read since expiry.
type TTLCache struct {
	entries   map[string]*ttlEntry
	mu        sync.RWMutex
	logger    *zap.Logger
	sweepFreq time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewTTLCache creates a new in-process TTL cache and starts its sweep task
func NewTTLCache(logger *zap.Logger, sweepFreq time.Duration) *TTLCache {
	cache := &TTLCache{
		entries:   make(map[string]*ttlEntry),
		logger:    logger,
		sweepFreq: sweepFreq,
		stopCh:    make(chan struct{}),
	}

	go cache.startSweepTask()

	return cache
}

// Put stores a value under key for the given TTL
func (c *TTLCache) Put(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &ttlEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Get retrieves the value for key. An expired entry is treated as absent and
// removed.
func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have renewed
		// the key
		if current, still := c.entries[key]; still && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return entry.value, true
}

// Delete removes a single entry
func (c *TTLCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// the number removed
func (c *TTLCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of resident entries, expired or not
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// sweep removes expired entries
func (c *TTLCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		c.logger.Debug("Swept expired cache entries", zap.Int("expired_count", expiredCount))
	}
}

// startSweepTask runs the sweep on a fixed interval, independent of read
// traffic
func (c *TTLCache) startSweepTask() {
	ticker := time.NewTicker(c.sweepFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background sweep task
func (c *TTLCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
