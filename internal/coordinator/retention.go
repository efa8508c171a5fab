package coordinator

import (
	"context"
	"time"

	"github.com/sportsedge/featurestore/internal/store"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// TriggerRetentionSweep deletes every entity whose newest record is
// older than the retention horizon, archives the swept rows when an
// archive directory is configured, and invalidates the cache entries
// of swept entities.
func (c *Coordinator) TriggerRetentionSweep(ctx context.Context) (*store.SweepResult, error) {
	cutoff := c.clock().UTC().Add(-c.config.Retention.Horizon)

	result, err := c.store.SweepBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	invalidated := c.cache.InvalidateKeys(result.Keys)

	c.stats.SweepsRun.Add(1)
	metrics.RecordSweep(result.EntitiesDeleted, result.RecordsDeleted)

	c.logger.Info("retention sweep",
		"cutoff", cutoff,
		"entities", result.EntitiesDeleted,
		"records", result.RecordsDeleted,
		"vectors", result.VectorsDeleted,
		"cache_invalidated", invalidated,
		"archive", result.ArchiveFile)

	return result, nil
}

// runRetention runs the periodic sweep loop until Close.
func (c *Coordinator) runRetention() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Retention.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			if _, err := c.TriggerRetentionSweep(ctx); err != nil {
				c.logger.Error("retention sweep failed", "error", err)
			}
			cancel()
		}
	}
}
