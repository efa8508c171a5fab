// Package config provides configuration defaults and utilities
// for the featurestore application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Cache Defaults
// =============================================================================

const (
	// DefaultHotCapacity is the maximum entry count of the hot tier.
	// Override via config: cache.hot_capacity
	DefaultHotCapacity = 10000

	// DefaultWarmCapacity is the maximum entry count of the warm tier.
	// Override via config: cache.warm_capacity
	DefaultWarmCapacity = 100000

	// DefaultPromotionThreshold is the number of accesses within the
	// promotion window that moves a warm entry to the hot tier.
	// Override via config: cache.promotion_threshold
	DefaultPromotionThreshold = 3

	// DefaultPromotionWindow is the sliding window over which accesses
	// are counted toward promotion.
	// Override via config: cache.promotion_window
	DefaultPromotionWindow = 5 * time.Minute

	// DefaultTTLSweepInterval is how often expired entries are removed.
	// Expiry is enforced by the sweep, not on every access, to bound
	// sweep overhead.
	// Override via config: cache.ttl_sweep_interval
	DefaultTTLSweepInterval = 60 * time.Second

	// DefaultCacheShards is the number of independent lock domains the
	// tier maps are hashed into.
	// Override via config: cache.shards
	DefaultCacheShards = 16

	// DefaultEntryTTL is the TTL applied to cached entries when the
	// caller does not supply one. Zero disables expiry.
	// Override via config: cache.default_ttl
	DefaultEntryTTL = 6 * time.Hour
)

// =============================================================================
// Quality Defaults
// =============================================================================

const (
	// DefaultQualityThreshold is the minimum completeness and accuracy
	// score for a batch to be accepted.
	// Override via config: quality.threshold
	DefaultQualityThreshold = 0.95
)

// =============================================================================
// Store Defaults
// =============================================================================

const (
	// DefaultStorePath is the DuckDB database file. Empty means
	// in-memory, which is only useful for tests.
	// Override via config: store.path
	DefaultStorePath = "featurestore.db"

	// DefaultRetryMax is the maximum number of retries for transient
	// store failures. Retrying happens at the coordinator; the store
	// surfaces errors synchronously.
	// Override via config: store.retry_max
	DefaultRetryMax = 4

	// DefaultRetryBaseDelay is the first backoff delay; subsequent
	// retries double it.
	// Override via config: store.retry_base_delay
	DefaultRetryBaseDelay = 50 * time.Millisecond
)

// =============================================================================
// Feature Defaults
// =============================================================================

const (
	// DefaultFeatureSetVersion is the active feature set version
	// stamped on computed vectors.
	// Override via config: features.set_version
	DefaultFeatureSetVersion = 1

	// DefaultRecomputeTimeout bounds synchronous feature
	// recomputation on a full cache+store miss.
	// Override via config: features.recompute_timeout
	DefaultRecomputeTimeout = 2 * time.Second
)

// =============================================================================
// Retention Defaults
// =============================================================================

const (
	// DefaultRetentionHorizon is the age past which entity records are
	// deleted by the retention sweep.
	// Override via config: retention.horizon
	DefaultRetentionHorizon = 3 * 365 * 24 * time.Hour

	// DefaultRetentionInterval is how often the periodic sweep runs.
	// Override via config: retention.interval
	DefaultRetentionInterval = 24 * time.Hour
)

// =============================================================================
// Ingest Defaults
// =============================================================================

const (
	// DefaultSpoolPollInterval is how often the daemon scans the
	// ingest spool directory for new payload files.
	// Override via config: ingest.poll_interval
	DefaultSpoolPollInterval = 5 * time.Second
)

// =============================================================================
// Observability Defaults
// =============================================================================

const (
	// DefaultMetricsListen is the Prometheus metrics listen address.
	// Override via config: metrics.listen
	DefaultMetricsListen = "0.0.0.0:9090"
)
