// Package cache implements the tiered hot/warm cache that sits in
// front of the persistent store. Entries live in sharded lock domains;
// the hot and warm tiers have independent capacity bounds enforced by
// frequency-aware eviction, and a background sweeper retires entries
// whose TTL has elapsed.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// Config holds cache tuning parameters.
type Config struct {
	// HotCapacity is the maximum number of entries in the hot tier.
	HotCapacity int

	// WarmCapacity is the maximum number of entries in the warm tier.
	WarmCapacity int

	// PromotionThreshold is the access count within PromotionWindow
	// that promotes a warm entry to hot.
	PromotionThreshold int

	// PromotionWindow bounds how far back accesses count toward
	// promotion.
	PromotionWindow time.Duration

	// TTLSweepInterval is how often the sweeper scans for expired
	// entries. Zero disables the background sweeper.
	TTLSweepInterval time.Duration

	// Shards is the number of lock domains.
	Shards int

	// DefaultTTL is applied to entries inserted without an explicit
	// TTL. Zero means entries never expire.
	DefaultTTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		HotCapacity:        10000,
		WarmCapacity:       100000,
		PromotionThreshold: 3,
		PromotionWindow:    5 * time.Minute,
		TTLSweepInterval:   60 * time.Second,
		Shards:             16,
		DefaultTTL:         6 * time.Hour,
	}
}

// Stats tracks cache counters.
type Stats struct {
	HotHits       atomic.Int64
	WarmHits      atomic.Int64
	Misses        atomic.Int64
	Inserts       atomic.Int64
	Promotions    atomic.Int64
	Demotions     atomic.Int64
	Evictions     atomic.Int64
	Expired       atomic.Int64
	Invalidations atomic.Int64
}

// StatsSnapshot is a point-in-time copy of cache counters and sizes.
type StatsSnapshot struct {
	HotHits       int64
	WarmHits      int64
	Misses        int64
	Inserts       int64
	Promotions    int64
	Demotions     int64
	Evictions     int64
	Expired       int64
	Invalidations int64
	HotEntries    int64
	WarmEntries   int64
}

// Manager is the tiered cache.
type Manager struct {
	config Config
	logger *slog.Logger

	shards []*shard

	// Tier sizes are global atomics so capacity checks never hold
	// more than one shard lock.
	hotCount  atomic.Int64
	warmCount atomic.Int64

	evictCursor atomic.Uint32

	clock   func() time.Time
	latency *latencyRecorder
	stats   Stats

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Lookup latency measurement
// always uses the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// New creates a cache manager and starts the TTL sweeper if the
// configured interval is positive.
func New(config Config, opts ...Option) *Manager {
	if config.Shards <= 0 {
		config.Shards = DefaultConfig().Shards
	}
	if config.PromotionThreshold <= 0 {
		config.PromotionThreshold = DefaultConfig().PromotionThreshold
	}
	if config.PromotionWindow <= 0 {
		config.PromotionWindow = DefaultConfig().PromotionWindow
	}

	m := &Manager{
		config:  config,
		logger:  logging.Component("cache"),
		shards:  make([]*shard, config.Shards),
		clock:   time.Now,
		latency: newLatencyRecorder(),
		done:    make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = newShard()
	}

	for _, opt := range opts {
		opt(m)
	}

	if config.TTLSweepInterval > 0 {
		m.wg.Add(1)
		go m.runSweeper()
	}

	return m
}

// Close stops the background sweeper.
func (m *Manager) Close() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *Manager) shardFor(key string) *shard {
	return m.shards[shardIndex(key, len(m.shards))]
}

func (m *Manager) count(tier types.Tier) *atomic.Int64 {
	if tier == types.TierHot {
		return &m.hotCount
	}
	return &m.warmCount
}

func (m *Manager) capacityOf(tier types.Tier) int {
	if tier == types.TierHot {
		return m.config.HotCapacity
	}
	return m.config.WarmCapacity
}

// =============================================================================
// Lookup and insertion
// =============================================================================

// Lookup returns the cached value for key and the tier it was found
// in. A warm hit that crosses the promotion threshold moves the entry
// to the hot tier before returning. Expired entries are still served
// until the sweeper retires them.
func (m *Manager) Lookup(key types.CacheKey) (any, types.Tier, bool) {
	start := time.Now()
	ks := key.String()
	s := m.shardFor(ks)

	s.mu.Lock()
	e, ok := s.entries[ks]
	if !ok {
		s.mu.Unlock()
		m.stats.Misses.Add(1)
		metrics.RecordCacheMiss()
		return nil, types.TierCold, false
	}

	now := m.clock()
	windowHits := e.touch(now, now.Add(-m.config.PromotionWindow))
	foundIn := e.tier
	promoted := false
	if foundIn == types.TierWarm && windowHits >= m.config.PromotionThreshold {
		m.transition(e, types.TierHot)
		promoted = true
	}
	value := e.value
	s.mu.Unlock()

	if promoted {
		m.enforceCapacity(types.TierHot, ks)
	}

	if foundIn == types.TierHot {
		m.stats.HotHits.Add(1)
	} else {
		m.stats.WarmHits.Add(1)
	}
	metrics.RecordCacheHit(foundIn.String())
	m.latency.record(foundIn, time.Since(start))

	return value, foundIn, true
}

// Put inserts or replaces a value in the given tier. Inserting into a
// full tier evicts before the new entry is added, so tier capacity is
// never exceeded by a completed Put.
func (m *Manager) Put(key types.CacheKey, value any, size int64, tier types.Tier) {
	m.PutTTL(key, value, size, tier, m.config.DefaultTTL)
}

// PutTTL is Put with an explicit TTL. A zero TTL means the entry never
// expires.
func (m *Manager) PutTTL(key types.CacheKey, value any, size int64, tier types.Tier, ttl time.Duration) {
	if !tier.Cached() {
		tier = types.TierWarm
	}
	ks := key.String()

	m.makeRoom(tier, ks)

	now := m.clock()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}

	s := m.shardFor(ks)
	s.mu.Lock()
	if e, ok := s.entries[ks]; ok {
		e.value = value
		e.size = size
		e.storedAt = now
		e.expiresAt = expires
		if e.tier != tier {
			m.transition(e, tier)
		}
		s.mu.Unlock()
		return
	}
	s.entries[ks] = &entry{
		key:        key,
		value:      value,
		size:       size,
		tier:       tier,
		storedAt:   now,
		lastAccess: now,
		expiresAt:  expires,
	}
	m.count(tier).Add(1)
	s.mu.Unlock()

	m.stats.Inserts.Add(1)
}

// =============================================================================
// Invalidation
// =============================================================================

// Invalidate removes a single key. Returns true if it was cached.
func (m *Manager) Invalidate(key types.CacheKey) bool {
	ks := key.String()
	s := m.shardFor(ks)

	s.mu.Lock()
	e, ok := s.entries[ks]
	if ok {
		delete(s.entries, ks)
		m.count(e.tier).Add(-1)
	}
	s.mu.Unlock()

	if ok {
		m.stats.Invalidations.Add(1)
	}
	return ok
}

// InvalidateEntity removes the entity record and every feature vector
// cached for one entity, across all feature set versions. Returns the
// number of entries removed.
func (m *Manager) InvalidateEntity(entityType types.EntityType, entityID string) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if e.key.EntityType == entityType && e.key.EntityID == entityID {
				delete(s.entries, k)
				m.count(e.tier).Add(-1)
				removed++
			}
		}
		s.mu.Unlock()
	}
	m.stats.Invalidations.Add(int64(removed))
	return removed
}

// InvalidateKeys removes a batch of entity keys, as produced by a
// retention sweep, along with every feature vector cached for them.
// Returns the number of entries removed.
func (m *Manager) InvalidateKeys(keys []types.CacheKey) int {
	removed := 0
	for _, k := range keys {
		removed += m.InvalidateEntity(k.EntityType, k.EntityID)
	}
	return removed
}

// =============================================================================
// Tier transitions and eviction
// =============================================================================

// transition moves an entry between tiers. Every tier change in the
// cache goes through here. The caller holds the entry's shard lock.
func (m *Manager) transition(e *entry, to types.Tier) {
	from := e.tier
	if from == to {
		return
	}
	e.tier = to
	m.count(from).Add(-1)
	m.count(to).Add(1)

	// Tiers order fastest-first, so a smaller destination is a
	// promotion.
	if to < from {
		m.stats.Promotions.Add(1)
		metrics.RecordPromotion(to.String())
	} else {
		m.stats.Demotions.Add(1)
		metrics.RecordDemotion(from.String())
	}
}

// makeRoom evicts from tier until it has capacity for one more entry.
// The entry at skip is never chosen as a victim.
func (m *Manager) makeRoom(tier types.Tier, skip string) {
	capacity := m.capacityOf(tier)
	if capacity <= 0 {
		return
	}
	for int(m.count(tier).Load()) >= capacity {
		if !m.evictOne(tier, skip) {
			return
		}
	}
}

// enforceCapacity evicts from tier until it is back inside its bound,
// after an entry has already landed there (demotion spillover).
func (m *Manager) enforceCapacity(tier types.Tier, skip string) {
	capacity := m.capacityOf(tier)
	if capacity <= 0 {
		return
	}
	for int(m.count(tier).Load()) > capacity {
		if !m.evictOne(tier, skip) {
			return
		}
	}
}

// evictOne removes one entry from tier. Hot victims are demoted to
// warm; warm victims leave the cache and survive only in the store.
func (m *Manager) evictOne(tier types.Tier, skip string) bool {
	start := int(m.evictCursor.Add(1))
	for i := 0; i < len(m.shards); i++ {
		s := m.shards[(start+i)%len(m.shards)]

		s.mu.Lock()
		victim := s.evictionCandidate(tier, skip)
		if victim == nil {
			s.mu.Unlock()
			continue
		}

		var demotedKey string
		if tier == types.TierHot {
			m.transition(victim, types.TierWarm)
			demotedKey = victim.key.String()
		} else {
			delete(s.entries, victim.key.String())
			m.count(tier).Add(-1)
		}
		s.mu.Unlock()

		m.stats.Evictions.Add(1)
		metrics.RecordEviction(tier.String())

		if demotedKey != "" {
			m.enforceCapacity(types.TierWarm, demotedKey)
		}
		return true
	}
	return false
}

// =============================================================================
// Introspection
// =============================================================================

// Len returns the current entry count of a tier.
func (m *Manager) Len(tier types.Tier) int {
	return int(m.count(tier).Load())
}

// Stats returns a snapshot of cache counters and tier sizes.
func (m *Manager) Stats() StatsSnapshot {
	return StatsSnapshot{
		HotHits:       m.stats.HotHits.Load(),
		WarmHits:      m.stats.WarmHits.Load(),
		Misses:        m.stats.Misses.Load(),
		Inserts:       m.stats.Inserts.Load(),
		Promotions:    m.stats.Promotions.Load(),
		Demotions:     m.stats.Demotions.Load(),
		Evictions:     m.stats.Evictions.Load(),
		Expired:       m.stats.Expired.Load(),
		Invalidations: m.stats.Invalidations.Load(),
		HotEntries:    m.hotCount.Load(),
		WarmEntries:   m.warmCount.Load(),
	}
}
