// Package coordinator wires ingestion, validation, the tiered cache,
// feature computation, and the persistent store into the operations
// the rest of the system calls. It owns batch quality gating, cache
// refresh policy, synchronous feature recomputation, and the
// retention loop.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sportsedge/featurestore/internal/cache"
	"github.com/sportsedge/featurestore/internal/config"
	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/store"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/internal/validator"
)

// Stats tracks coordinator counters.
type Stats struct {
	BatchesIngested   atomic.Int64
	BatchesDegraded   atomic.Int64
	BatchesFailed     atomic.Int64
	RecordsPersisted  atomic.Int64
	RecordsRejected   atomic.Int64
	Recomputes        atomic.Int64
	RecomputeTimeouts atomic.Int64
	ForceRefreshes    atomic.Int64
	SweepsRun         atomic.Int64
}

// StatsSnapshot is a point-in-time copy of coordinator counters.
type StatsSnapshot struct {
	BatchesIngested   int64
	BatchesDegraded   int64
	BatchesFailed     int64
	RecordsPersisted  int64
	RecordsRejected   int64
	Recomputes        int64
	RecomputeTimeouts int64
	ForceRefreshes    int64
	SweepsRun         int64
}

// Coordinator orchestrates the ingestion and retrieval paths.
type Coordinator struct {
	config    *config.Config
	store     *store.Store
	cache     *cache.Manager
	validator *validator.Validator
	logger    *slog.Logger

	// recomputeGroup collapses concurrent recomputations of the same
	// feature key into one store round trip.
	recomputeGroup singleflight.Group

	clock func() time.Time
	stats Stats

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source used for retention cutoffs.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// New creates a coordinator over an opened store and cache. The
// validator is built from the quality configuration, including rule
// overrides when a rules file is configured.
func New(cfg *config.Config, st *store.Store, ca *cache.Manager, opts ...Option) (*Coordinator, error) {
	rules := validator.DefaultRules()
	if cfg.Quality.RulesFile != "" {
		var err error
		rules, err = validator.LoadOverrides(cfg.Quality.RulesFile, rules)
		if err != nil {
			return nil, errors.Wrap(err, "loading quality rule overrides")
		}
	}

	c := &Coordinator{
		config:    cfg,
		store:     st,
		cache:     ca,
		validator: validator.NewWithRules(cfg.Quality.Threshold, rules),
		logger:    logging.Component("coordinator"),
		clock:     time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start launches the periodic retention sweep when an interval is
// configured.
func (c *Coordinator) Start() {
	if c.config.Retention.Interval > 0 {
		c.wg.Add(1)
		go c.runRetention()
	}
}

// Close stops background work. The store and cache are owned by the
// caller and closed separately.
func (c *Coordinator) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// Stats returns a snapshot of coordinator counters.
func (c *Coordinator) Stats() StatsSnapshot {
	return StatsSnapshot{
		BatchesIngested:   c.stats.BatchesIngested.Load(),
		BatchesDegraded:   c.stats.BatchesDegraded.Load(),
		BatchesFailed:     c.stats.BatchesFailed.Load(),
		RecordsPersisted:  c.stats.RecordsPersisted.Load(),
		RecordsRejected:   c.stats.RecordsRejected.Load(),
		Recomputes:        c.stats.Recomputes.Load(),
		RecomputeTimeouts: c.stats.RecomputeTimeouts.Load(),
		ForceRefreshes:    c.stats.ForceRefreshes.Load(),
		SweepsRun:         c.stats.SweepsRun.Load(),
	}
}

// Query pages through latest-version records by entity type and
// source time range.
func (c *Coordinator) Query(ctx context.Context, filter store.QueryFilter) (*store.QueryPage, error) {
	return c.store.Query(ctx, filter)
}

// QualityHistory returns the most recent batch quality reports.
func (c *Coordinator) QualityHistory(ctx context.Context, limit int) ([]types.QualityReport, error) {
	return c.store.QualityHistory(ctx, limit)
}

// CacheStats exposes the cache counters for operational tooling.
func (c *Coordinator) CacheStats() cache.StatsSnapshot {
	return c.cache.Stats()
}

// StoreStats exposes the store counters for operational tooling.
func (c *Coordinator) StoreStats() store.StoreStats {
	return c.store.Stats()
}
