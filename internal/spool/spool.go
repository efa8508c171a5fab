// Package spool feeds the coordinator from a drop directory. Upstream
// scrapers write one JSON payload file per fetch; the watcher picks
// each file up, ingests it as a batch, and renames it by outcome so a
// crashed run never loses or double-ingests a file that completed.
package spool

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/types"
)

const (
	doneSuffix   = ".done"
	failedSuffix = ".failed"
)

// Ingester is the slice of the coordinator the watcher needs.
type Ingester interface {
	IngestRaw(ctx context.Context, input types.RawInput) (*types.QualityReport, error)
}

// Watcher polls a spool directory for payload files.
type Watcher struct {
	dir      string
	interval time.Duration
	ingester Ingester
	logger   *slog.Logger
	done     chan struct{}
}

// NewWatcher creates a spool watcher over dir.
func NewWatcher(dir string, interval time.Duration, ingester Ingester) *Watcher {
	return &Watcher{
		dir:      dir,
		interval: interval,
		ingester: ingester,
		logger:   logging.Component("spool"),
		done:     make(chan struct{}),
	}
}

// Start begins polling in the background.
func (w *Watcher) Start() {
	go w.watch()
}

// Stop stops polling. In-flight ingestion finishes first.
func (w *Watcher) Stop() {
	close(w.done)
}

func (w *Watcher) watch() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.Scan(context.Background())
		}
	}
}

// Scan processes every pending payload file once, oldest first.
// Returns the number of files ingested successfully.
func (w *Watcher) Scan(ctx context.Context) int {
	files, err := w.pending()
	if err != nil {
		w.logger.Error("spool scan failed", "dir", w.dir, "error", err)
		return 0
	}

	ingested := 0
	for _, path := range files {
		select {
		case <-w.done:
			return ingested
		default:
		}
		if w.process(ctx, path) {
			ingested++
		}
	}
	return ingested
}

func (w *Watcher) pending() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, doneSuffix) || strings.HasSuffix(name, failedSuffix) {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(w.dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (w *Watcher) process(ctx context.Context, path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("spool read failed", "file", path, "error", err)
		return false
	}

	var input types.RawInput
	if err := json.Unmarshal(data, &input); err != nil {
		w.logger.Warn("spool file is not a payload", "file", path, "error", err)
		w.finish(path, failedSuffix)
		return false
	}

	report, err := w.ingester.IngestRaw(ctx, input)
	if err != nil {
		w.logger.Error("spool ingest failed", "file", path, "error", err)
		w.finish(path, failedSuffix)
		return false
	}

	w.logger.Info("spool file ingested",
		"file", filepath.Base(path),
		"feed", input.Feed,
		"batch_id", report.BatchID,
		"records", report.TotalRecords,
		"degraded", report.Degraded())
	w.finish(path, doneSuffix)
	return true
}

func (w *Watcher) finish(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		w.logger.Error("spool rename failed", "file", path, "error", err)
	}
}
