package cache

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jsodeh/konvato/internal/core"
	"github.com/jsodeh/konvato/internal/logging"
	"github.com/jsodeh/konvato/internal/metrics"
)

// Manager is the domain cache layer: a TTL cache in front of an optional
// persistent store, with per-kind TTL policy, warm-up, invalidation and a
// compliance retention sweep. All cached entities are owned here; callers go
// through the accessors and never touch storage directly.
type Manager struct {
	memory        *TTLCache
	store         core.PersistentStore
	logger        *zap.Logger
	compliance    *logging.ComplianceLogger
	retentionFreq time.Duration

	connected atomic.Bool
	sf        singleflight.Group

	hits      atomic.Int64
	misses    atomic.Int64
	precached atomic.Int32

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManager creates a cache manager. store may be nil, in which case the
// manager runs memory-only from the start.
func NewManager(
	memory *TTLCache,
	store core.PersistentStore,
	logger *zap.Logger,
	compliance *logging.ComplianceLogger,
	retentionFreq time.Duration,
) *Manager {
	m := &Manager{
		memory:        memory,
		store:         store,
		logger:        logger,
		compliance:    compliance,
		retentionFreq: retentionFreq,
		stopCh:        make(chan struct{}),
	}

	if store != nil {
		go m.startRetentionTask()
	}

	return m
}

// Connect establishes the persistent store connection. It is idempotent and
// concurrency-safe: concurrent callers share one in-flight attempt. On
// failure the manager keeps operating in memory-only mode; the error is
// returned for logging only.
func (m *Manager) Connect(ctx context.Context) error {
	if m.store == nil || m.connected.Load() {
		return nil
	}

	_, err, _ := m.sf.Do("connect", func() (any, error) {
		if m.connected.Load() {
			return nil, nil
		}
		if err := m.store.Connect(ctx); err != nil {
			m.logger.Warn("Persistent store unavailable, running memory-only", zap.Error(err))
			return nil, err
		}
		m.connected.Store(true)
		m.logger.Info("Persistent store connected")
		return nil, nil
	})
	return err
}

func (m *Manager) storeReady() bool {
	return m.store != nil && m.connected.Load()
}

// WarmUp preloads long-lived configuration entries and marks the historically
// popular routes as pre-cached, avoiding cold-start latency on hot paths
func (m *Manager) WarmUp(ctx context.Context, configs []*core.BookmakerConfig) {
	for _, cfg := range configs {
		m.SetBookmakerConfig(ctx, cfg)
	}

	pairs := PopularPairs()
	m.precached.Store(int32(len(pairs)))

	m.logger.Info("Cache warmed up",
		zap.Int("bookmaker_configs", len(configs)),
		zap.Strings("popular_pairs", pairs))
}

// GetGameMapping retrieves a cached game mapping for a route
func (m *Manager) GetGameMapping(ctx context.Context, source, destination, gameID string) (*core.GameMapping, bool) {
	key := gameMappingKey(source, destination, gameID)

	if v, ok := m.memory.Get(key); ok {
		m.recordHit(KindGameMapping)
		return v.(*core.GameMapping), true
	}

	if rec, ok := m.storeLookup(ctx, key); ok {
		var mapping core.GameMapping
		if err := json.Unmarshal(rec.Payload, &mapping); err != nil {
			m.logger.Error("Failed to decode stored game mapping", zap.String("key", key), zap.Error(err))
		} else {
			ttl := GameMappingTTL(source, destination, mapping.EventStart, time.Now())
			m.memory.Put(key, &mapping, ttl)
			m.recordHit(KindGameMapping)
			return &mapping, true
		}
	}

	m.recordMiss(KindGameMapping)
	return nil, false
}

// SetGameMapping stores a game mapping with its policy TTL
func (m *Manager) SetGameMapping(ctx context.Context, mapping *core.GameMapping) {
	key := gameMappingKey(mapping.SourceBookmaker, mapping.DestinationBookmaker, mapping.SourceGameID)
	ttl := GameMappingTTL(mapping.SourceBookmaker, mapping.DestinationBookmaker, mapping.EventStart, time.Now())

	m.memory.Put(key, mapping, ttl)
	m.storeUpsert(ctx, key, KindGameMapping, mapping, ttl)
}

// GetOdds retrieves a cached odds quote
func (m *Manager) GetOdds(ctx context.Context, bookmaker, gameID, market string) (*core.OddsQuote, bool) {
	key := oddsKey(bookmaker, gameID, market)

	if v, ok := m.memory.Get(key); ok {
		m.recordHit(KindOdds)
		return v.(*core.OddsQuote), true
	}

	if rec, ok := m.storeLookup(ctx, key); ok {
		var quote core.OddsQuote
		if err := json.Unmarshal(rec.Payload, &quote); err != nil {
			m.logger.Error("Failed to decode stored odds quote", zap.String("key", key), zap.Error(err))
		} else {
			ttl := OddsTTL(market, quote.EventStart, time.Now())
			m.memory.Put(key, &quote, ttl)
			m.recordHit(KindOdds)
			return &quote, true
		}
	}

	m.recordMiss(KindOdds)
	return nil, false
}

// SetOdds stores an odds quote with its policy TTL
func (m *Manager) SetOdds(ctx context.Context, quote *core.OddsQuote) {
	key := oddsKey(quote.Bookmaker, quote.GameID, quote.Market)
	ttl := OddsTTL(quote.Market, quote.EventStart, time.Now())

	m.memory.Put(key, quote, ttl)
	m.storeUpsert(ctx, key, KindOdds, quote, ttl)
}

// GetBookmakerConfig retrieves a cached bookmaker configuration
func (m *Manager) GetBookmakerConfig(ctx context.Context, bookmaker string) (*core.BookmakerConfig, bool) {
	key := bookmakerConfigKey(bookmaker)

	if v, ok := m.memory.Get(key); ok {
		m.recordHit(KindBookmakerConfig)
		return v.(*core.BookmakerConfig), true
	}

	if rec, ok := m.storeLookup(ctx, key); ok {
		var cfg core.BookmakerConfig
		if err := json.Unmarshal(rec.Payload, &cfg); err != nil {
			m.logger.Error("Failed to decode stored bookmaker config", zap.String("key", key), zap.Error(err))
		} else if err := cfg.Validate(); err != nil {
			m.logger.Warn("Rejecting malformed stored bookmaker config", zap.String("key", key), zap.Error(err))
		} else {
			m.memory.Put(key, &cfg, BookmakerConfigTTL())
			m.recordHit(KindBookmakerConfig)
			return &cfg, true
		}
	}

	m.recordMiss(KindBookmakerConfig)
	return nil, false
}

// SetBookmakerConfig stores a bookmaker configuration
func (m *Manager) SetBookmakerConfig(ctx context.Context, cfg *core.BookmakerConfig) {
	key := bookmakerConfigKey(cfg.ID)

	m.memory.Put(key, cfg, BookmakerConfigTTL())
	m.storeUpsert(ctx, key, KindBookmakerConfig, cfg, BookmakerConfigTTL())
}

// GetConversion retrieves the cached conversion record for a bookmaker pair.
// The key deliberately excludes the submitted betslip code.
func (m *Manager) GetConversion(ctx context.Context, source, destination string) (*core.ConversionRecord, bool) {
	key := conversionKey(source, destination)

	if v, ok := m.memory.Get(key); ok {
		m.recordHit(KindConversion)
		return v.(*core.ConversionRecord), true
	}

	if rec, ok := m.storeLookup(ctx, key); ok {
		var record core.ConversionRecord
		if err := json.Unmarshal(rec.Payload, &record); err != nil {
			m.logger.Error("Failed to decode stored conversion record", zap.String("key", key), zap.Error(err))
		} else {
			m.memory.Put(key, &record, ConversionTTL())
			m.recordHit(KindConversion)
			return &record, true
		}
	}

	m.recordMiss(KindConversion)
	return nil, false
}

// SetConversion stores a sanitized conversion record under the pair-only key
func (m *Manager) SetConversion(ctx context.Context, record *core.ConversionRecord) {
	key := conversionKey(record.SourceBookmaker, record.DestinationBookmaker)

	m.memory.Put(key, record, ConversionTTL())
	m.storeUpsert(ctx, key, KindConversion, record, ConversionTTL())
}

// Invalidate removes every entry whose key matches the scope prefix from both
// tiers
func (m *Manager) Invalidate(ctx context.Context, scope string) {
	removed := m.memory.DeletePrefix(scope)
	m.logger.Info("Invalidated cache scope", zap.String("scope", scope), zap.Int("memory_removed", removed))

	if m.storeReady() {
		if _, err := m.store.DeletePrefix(ctx, scope); err != nil {
			m.logger.Error("Failed to invalidate persistent scope", zap.String("scope", scope), zap.Error(err))
		}
	}
}

// Stats returns a read-only snapshot of cache activity
func (m *Manager) Stats() core.CacheStats {
	entries := m.memory.Len()
	metrics.CacheEntries.Set(float64(entries))
	return core.CacheStats{
		HitCount:        m.hits.Load(),
		MissCount:       m.misses.Load(),
		EntryCount:      entries,
		PrecachedRoutes: int(m.precached.Load()),
	}
}

// EnforceRetention deletes persistent records older than each kind's
// compliance maximum. The cutoff compares created_at, not the expiry column,
// so refreshed records still age out.
func (m *Manager) EnforceRetention(ctx context.Context) {
	if !m.storeReady() {
		return
	}

	now := time.Now()
	for _, kind := range RetentionKinds() {
		maxAge, _ := RetentionMaxAge(kind)
		cutoff := now.Add(-maxAge)

		deleted, err := m.store.DeleteOlderThan(ctx, kind, cutoff)
		if err != nil {
			m.logger.Error("Retention sweep failed", zap.String("kind", kind), zap.Error(err))
			continue
		}
		if deleted > 0 {
			metrics.RetentionDeletes.WithLabelValues(kind).Add(float64(deleted))
			m.compliance.RecordRetention(kind, deleted, cutoff)
		}
	}
}

// startRetentionTask runs the retention sweep on a fixed interval
func (m *Manager) startRetentionTask() {
	ticker := time.NewTicker(m.retentionFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.EnforceRetention(context.Background())
		case <-m.stopCh:
			return
		}
	}
}

// Stop tears the manager down: one final retention sweep, then the store and
// the sweep tasks
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)

		if m.storeReady() {
			m.EnforceRetention(context.Background())
			if err := m.store.Close(); err != nil {
				m.logger.Error("Failed to close persistent store", zap.Error(err))
			}
		}

		m.memory.Stop()
	})
}

// storeLookup reads through to the persistent tier. Store failures are
// logged, never surfaced; a failing store behaves like a miss.
func (m *Manager) storeLookup(ctx context.Context, key string) (*core.StoreRecord, bool) {
	if !m.storeReady() {
		return nil, false
	}

	rec, found, err := m.store.Lookup(ctx, key)
	if err != nil {
		m.logger.Error("Persistent store lookup failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return rec, found
}

// storeUpsert mirrors a write to the persistent tier, best effort
func (m *Manager) storeUpsert(ctx context.Context, key, kind string, value any, ttl time.Duration) {
	if !m.storeReady() {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		m.logger.Error("Failed to encode cache payload", zap.String("key", key), zap.Error(err))
		return
	}

	now := time.Now()
	rec := &core.StoreRecord{
		Key:       key,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.Upsert(ctx, rec); err != nil {
		m.logger.Error("Persistent store write failed", zap.String("key", key), zap.Error(err))
	}
}

func (m *Manager) recordHit(kind string) {
	m.hits.Add(1)
	metrics.CacheHits.WithLabelValues(kind).Inc()
}

func (m *Manager) recordMiss(kind string) {
	m.misses.Add(1)
	metrics.CacheMisses.WithLabelValues(kind).Inc()
}
