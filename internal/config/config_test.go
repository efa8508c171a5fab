package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"zero hot capacity", func(c *Config) { c.Cache.HotCapacity = 0 }, false},
		{"warm smaller than hot", func(c *Config) {
			c.Cache.HotCapacity = 100
			c.Cache.WarmCapacity = 50
		}, false},
		{"zero promotion threshold", func(c *Config) { c.Cache.PromotionThreshold = 0 }, false},
		{"negative default ttl", func(c *Config) { c.Cache.DefaultTTL = -time.Second }, false},
		{"threshold above one", func(c *Config) { c.Quality.Threshold = 1.5 }, false},
		{"threshold zero", func(c *Config) { c.Quality.Threshold = 0 }, false},
		{"threshold at one", func(c *Config) { c.Quality.Threshold = 1 }, true},
		{"zero feature set version", func(c *Config) { c.Features.SetVersion = 0 }, false},
		{"zero recompute timeout", func(c *Config) { c.Features.RecomputeTimeout = 0 }, false},
		{"zero retention horizon", func(c *Config) { c.Retention.Horizon = 0 }, false},
		{"retention interval disabled", func(c *Config) { c.Retention.Interval = 0 }, true},
		{"spool without interval", func(c *Config) {
			c.Ingest.SpoolDir = "/var/spool/featurestore"
			c.Ingest.PollInterval = 0
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("expected validation error")
				}
				if !errors.Is(err, errors.ErrInvalidConfig) && !errors.Is(err, errors.ErrMissingField) {
					t.Errorf("expected config error sentinel, got %v", err)
				}
			}
		})
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
cache:
  hot_capacity: 500
  warm_capacity: 5000
quality:
  threshold: 0.9
store:
  path: /tmp/test-featurestore.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Cache.HotCapacity != 500 {
		t.Errorf("hot capacity: expected 500, got %d", cfg.Cache.HotCapacity)
	}
	if cfg.Cache.WarmCapacity != 5000 {
		t.Errorf("warm capacity: expected 5000, got %d", cfg.Cache.WarmCapacity)
	}
	if cfg.Quality.Threshold != 0.9 {
		t.Errorf("threshold: expected 0.9, got %v", cfg.Quality.Threshold)
	}
	if cfg.Store.Path != "/tmp/test-featurestore.db" {
		t.Errorf("store path: got %q", cfg.Store.Path)
	}

	// Untouched keys keep their defaults.
	if cfg.Cache.PromotionThreshold != Default().Cache.PromotionThreshold {
		t.Error("promotion threshold should keep default")
	}
	if cfg.Features.RecomputeTimeout != Default().Features.RecomputeTimeout {
		t.Error("recompute timeout should keep default")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  hot_capacity: 500\n  warm_capacity: 5000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FEATURESTORE_CACHE.HOT_CAPACITY", "750")
	t.Setenv("FEATURESTORE_LOG.LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cache.HotCapacity != 750 {
		t.Errorf("env should override file: expected 750, got %d", cfg.Cache.HotCapacity)
	}
	if cfg.Cache.WarmCapacity != 5000 {
		t.Errorf("file value should survive: expected 5000, got %d", cfg.Cache.WarmCapacity)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: expected debug, got %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("quality:\n  threshold: 2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("out-of-range threshold should fail to load")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("explicit missing file should error")
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Cache.HotCapacity != Default().Cache.HotCapacity {
		t.Error("expected defaults without a file")
	}
}
