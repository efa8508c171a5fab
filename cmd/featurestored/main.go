// featurestored is the feature store daemon.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sportsedge/featurestore/internal/cache"
	"github.com/sportsedge/featurestore/internal/config"
	"github.com/sportsedge/featurestore/internal/coordinator"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/spool"
	"github.com/sportsedge/featurestore/internal/store"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// CLI flags
	cfgPath := flag.String("config", "", "config file path")
	dbPath := flag.String("db", "", "database path (overrides config)")
	spoolDir := flag.String("spool", "", "ingest spool directory (overrides config)")
	metricsListen := flag.String("metrics", "", "metrics listen address (overrides config)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *dbPath != "" {
		cfg.Store.Path = *dbPath
	}
	if *spoolDir != "" {
		cfg.Ingest.SpoolDir = *spoolDir
	}
	if *metricsListen != "" {
		cfg.Metrics.Listen = *metricsListen
	}

	logging.Init(parseLevel(cfg.Log.Level), cfg.Log.JSON)
	logging.Info("featurestored starting", "version", Version)

	// =========================================================================
	// Initialize Store (DuckDB - entities, vectors, quality reports)
	// =========================================================================

	logging.Info("initializing store", "path", cfg.Store.Path)

	st, err := store.New(store.Config{
		Path:        cfg.Store.Path,
		MemoryLimit: cfg.Store.MemoryLimit,
		ArchiveDir:  cfg.Retention.ArchiveDir,
	})
	if err != nil {
		logging.Error("create store", "error", err)
		os.Exit(1)
	}

	// =========================================================================
	// Initialize Cache (tiered hot/warm, TTL sweeper)
	// =========================================================================

	ca := cache.New(cache.Config{
		HotCapacity:        cfg.Cache.HotCapacity,
		WarmCapacity:       cfg.Cache.WarmCapacity,
		PromotionThreshold: cfg.Cache.PromotionThreshold,
		PromotionWindow:    cfg.Cache.PromotionWindow,
		TTLSweepInterval:   cfg.Cache.TTLSweepInterval,
		Shards:             cfg.Cache.Shards,
		DefaultTTL:         cfg.Cache.DefaultTTL,
	})

	// =========================================================================
	// Coordinator and Spool Watcher
	// =========================================================================

	coord, err := coordinator.New(cfg, st, ca)
	if err != nil {
		logging.Error("create coordinator", "error", err)
		os.Exit(1)
	}
	coord.Start()

	var watcher *spool.Watcher
	if cfg.Ingest.SpoolDir != "" {
		logging.Info("watching spool", "dir", cfg.Ingest.SpoolDir,
			"interval", cfg.Ingest.PollInterval)
		watcher = spool.NewWatcher(cfg.Ingest.SpoolDir, cfg.Ingest.PollInterval, coord)
		watcher.Start()
	}

	// =========================================================================
	// Metrics Endpoint
	// =========================================================================

	var metricsServer *http.Server
	if cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(),
			promhttp.HandlerOpts{}))
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logging.Info("metrics listening", "addr", cfg.Metrics.Listen)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("metrics server", "error", err)
			}
		}()
	}

	// =========================================================================
	// Signal Handling and Graceful Shutdown
	// =========================================================================

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logging.Info("shutting down")

	// Stop inbound work first, then background loops, then state.
	if watcher != nil {
		watcher.Stop()
	}
	if metricsServer != nil {
		metricsServer.Close()
	}
	coord.Close()
	ca.Close()
	if err := st.Close(); err != nil {
		logging.Error("close store", "error", err)
	}

	logging.Info("featurestored stopped")
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
