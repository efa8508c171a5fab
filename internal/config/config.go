// Package config defines the featurestore runtime configuration and
// its loading rules: documented defaults, an optional YAML file, and
// FEATURESTORE_-prefixed environment overrides.
package config

import (
	"time"

	defaults "github.com/sportsedge/featurestore/config"
	"github.com/sportsedge/featurestore/internal/errors"
)

// Config is the complete runtime configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Store     StoreConfig     `koanf:"store"`
	Cache     CacheConfig     `koanf:"cache"`
	Quality   QualityConfig   `koanf:"quality"`
	Features  FeaturesConfig  `koanf:"features"`
	Retention RetentionConfig `koanf:"retention"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Ingest    IngestConfig    `koanf:"ingest"`
}

// IngestConfig configures the spool-directory ingest watcher.
type IngestConfig struct {
	// SpoolDir is scanned for raw feed payload files. Empty disables
	// the watcher; ingestion then happens only through the library
	// API.
	SpoolDir string `koanf:"spool_dir"`

	// PollInterval is how often the spool directory is scanned.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `koanf:"level"`

	// JSON selects the JSON handler instead of text.
	JSON bool `koanf:"json"`
}

// StoreConfig configures the DuckDB persistence store.
type StoreConfig struct {
	// Path is the database file. Empty opens an in-memory database.
	Path string `koanf:"path"`

	// MemoryLimit is passed to DuckDB (e.g. "2GB"). Empty leaves the
	// engine default.
	MemoryLimit string `koanf:"memory_limit"`

	// RetryMax bounds coordinator-level retries of transient store
	// failures.
	RetryMax int `koanf:"retry_max"`

	// RetryBaseDelay is the first backoff delay; it doubles per retry.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`
}

// CacheConfig configures the tiered cache manager.
type CacheConfig struct {
	// HotCapacity is the hot tier entry bound.
	HotCapacity int `koanf:"hot_capacity"`

	// WarmCapacity is the warm tier entry bound.
	WarmCapacity int `koanf:"warm_capacity"`

	// PromotionThreshold is accesses-within-window before Warm→Hot.
	PromotionThreshold int `koanf:"promotion_threshold"`

	// PromotionWindow is the sliding access-counting window.
	PromotionWindow time.Duration `koanf:"promotion_window"`

	// TTLSweepInterval is how often the expiry sweep runs.
	TTLSweepInterval time.Duration `koanf:"ttl_sweep_interval"`

	// Shards is the number of independent lock domains.
	Shards int `koanf:"shards"`

	// DefaultTTL applies when callers do not supply a TTL. Zero
	// disables expiry.
	DefaultTTL time.Duration `koanf:"default_ttl"`
}

// QualityConfig configures batch quality gating.
type QualityConfig struct {
	// Threshold is the minimum completeness and accuracy score for a
	// batch to be accepted, in (0,1].
	Threshold float64 `koanf:"threshold"`

	// RulesFile optionally points at a YAML file overriding rule
	// weights and enable flags.
	RulesFile string `koanf:"rules_file"`
}

// FeaturesConfig configures feature vector computation.
type FeaturesConfig struct {
	// SetVersion is the active feature set version.
	SetVersion int `koanf:"set_version"`

	// RecomputeTimeout bounds synchronous recomputation on a full
	// cache+store miss.
	RecomputeTimeout time.Duration `koanf:"recompute_timeout"`
}

// RetentionConfig configures the retention sweep.
type RetentionConfig struct {
	// Horizon is the age past which entity records are deleted.
	Horizon time.Duration `koanf:"horizon"`

	// Interval is how often the periodic sweep runs. Zero disables
	// the periodic loop; explicit sweeps still work.
	Interval time.Duration `koanf:"interval"`

	// ArchiveDir receives Parquet archives of swept rows. Empty
	// disables archiving.
	ArchiveDir string `koanf:"archive_dir"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Listen is the metrics HTTP listen address. Empty disables the
	// endpoint.
	Listen string `koanf:"listen"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Path:           defaults.DefaultStorePath,
			RetryMax:       defaults.DefaultRetryMax,
			RetryBaseDelay: defaults.DefaultRetryBaseDelay,
		},
		Cache: CacheConfig{
			HotCapacity:        defaults.DefaultHotCapacity,
			WarmCapacity:       defaults.DefaultWarmCapacity,
			PromotionThreshold: defaults.DefaultPromotionThreshold,
			PromotionWindow:    defaults.DefaultPromotionWindow,
			TTLSweepInterval:   defaults.DefaultTTLSweepInterval,
			Shards:             defaults.DefaultCacheShards,
			DefaultTTL:         defaults.DefaultEntryTTL,
		},
		Quality: QualityConfig{
			Threshold: defaults.DefaultQualityThreshold,
		},
		Features: FeaturesConfig{
			SetVersion:       defaults.DefaultFeatureSetVersion,
			RecomputeTimeout: defaults.DefaultRecomputeTimeout,
		},
		Retention: RetentionConfig{
			Horizon:  defaults.DefaultRetentionHorizon,
			Interval: defaults.DefaultRetentionInterval,
		},
		Metrics: MetricsConfig{
			Listen: defaults.DefaultMetricsListen,
		},
		Ingest: IngestConfig{
			PollInterval: defaults.DefaultSpoolPollInterval,
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	verr := errors.NewValidationErrors()

	if c.Cache.HotCapacity <= 0 {
		verr.AddField("cache.hot_capacity", "must be positive")
	}
	if c.Cache.WarmCapacity <= 0 {
		verr.AddField("cache.warm_capacity", "must be positive")
	}
	if c.Cache.WarmCapacity < c.Cache.HotCapacity {
		verr.AddField("cache.warm_capacity", "must be at least cache.hot_capacity")
	}
	if c.Cache.PromotionThreshold < 1 {
		verr.AddField("cache.promotion_threshold", "must be at least 1")
	}
	if c.Cache.PromotionWindow <= 0 {
		verr.AddField("cache.promotion_window", "must be positive")
	}
	if c.Cache.TTLSweepInterval <= 0 {
		verr.AddField("cache.ttl_sweep_interval", "must be positive")
	}
	if c.Cache.Shards < 1 {
		verr.AddField("cache.shards", "must be at least 1")
	}
	if c.Cache.DefaultTTL < 0 {
		verr.AddField("cache.default_ttl", "must not be negative")
	}

	if c.Quality.Threshold <= 0 || c.Quality.Threshold > 1 {
		verr.AddField("quality.threshold", "must be in (0,1]")
	}

	if c.Features.SetVersion < 1 {
		verr.AddField("features.set_version", "must be at least 1")
	}
	if c.Features.RecomputeTimeout <= 0 {
		verr.AddField("features.recompute_timeout", "must be positive")
	}

	if c.Retention.Horizon <= 0 {
		verr.AddField("retention.horizon", "must be positive")
	}
	if c.Retention.Interval < 0 {
		verr.AddField("retention.interval", "must not be negative")
	}

	if c.Ingest.SpoolDir != "" && c.Ingest.PollInterval <= 0 {
		verr.AddField("ingest.poll_interval", "must be positive when a spool dir is set")
	}

	if c.Store.RetryMax < 0 {
		verr.AddField("store.retry_max", "must not be negative")
	}
	if c.Store.RetryBaseDelay <= 0 {
		verr.AddField("store.retry_base_delay", "must be positive")
	}

	return verr.Err()
}
