package coordinator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/features"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/normalize"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// ingestConcurrency bounds parallel record persistence per batch.
const ingestConcurrency = 8

// IngestRaw normalizes one raw feed payload and ingests the resulting
// batch.
func (c *Coordinator) IngestRaw(ctx context.Context, input types.RawInput) (*types.QualityReport, error) {
	records, batchID := normalize.Batch(input, c.clock().UTC())
	ctx = logging.ContextWithBatchID(logging.ContextWithFeed(ctx, input.Feed), batchID)
	return c.Ingest(ctx, records)
}

// Ingest validates a batch, persists the accepted records, stores the
// quality report, and applies cache effects. Records rejected by hard
// rules are never persisted. A batch below the quality threshold is
// still persisted but never refreshes the hot tier; retrieval falls
// back to the last known good versions already cached.
func (c *Coordinator) Ingest(ctx context.Context, records []types.EntityRecord) (*types.QualityReport, error) {
	start := time.Now()

	result, err := c.validator.Validate(records)
	if err != nil {
		return nil, err
	}
	report := result.Report

	if err := c.persistBatch(ctx, result.Accepted); err != nil {
		c.stats.BatchesFailed.Add(1)
		metrics.RecordBatchFailed()
		return report, err
	}

	if err := c.withRetry(ctx, "persist quality report", func() error {
		return c.store.PutQualityReport(ctx, report)
	}); err != nil {
		c.stats.BatchesFailed.Add(1)
		metrics.RecordBatchFailed()
		return report, err
	}

	c.applyCacheEffects(ctx, result.Accepted, report)

	c.stats.BatchesIngested.Add(1)
	c.stats.RecordsPersisted.Add(int64(len(result.Accepted)))
	c.stats.RecordsRejected.Add(int64(len(report.RejectedRecordIDs)))
	if report.Degraded() {
		c.stats.BatchesDegraded.Add(1)
		metrics.RecordBatchDegraded()
	}
	metrics.RecordBatchIngested()
	metrics.RecordRecordsIngested(len(result.Accepted))
	metrics.RecordRecordsRejected(len(report.RejectedRecordIDs))
	metrics.UpdateQualityScores(report.CompletenessScore, report.AccuracyScore)
	metrics.RecordIngestLatency(float64(time.Since(start).Microseconds()) / 1000.0)

	logging.WithContext(ctx).Info("batch ingested",
		"batch_id", report.BatchID,
		"total", report.TotalRecords,
		"persisted", len(result.Accepted),
		"rejected", len(report.RejectedRecordIDs),
		"completeness", report.CompletenessScore,
		"accuracy", report.AccuracyScore,
		"degraded", report.Degraded())

	return report, nil
}

// persistBatch writes accepted records in parallel. Each write is
// retried with backoff; any record that exhausts its retries fails
// the batch.
func (c *Coordinator) persistBatch(ctx context.Context, accepted []types.EntityRecord) error {
	if len(accepted) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)

	for i := range accepted {
		rec := &accepted[i]
		g.Go(func() error {
			return c.withRetry(gctx, "persist record", func() error {
				_, err := c.store.Put(gctx, rec)
				return err
			})
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Wrap(errors.ErrBatchFailed, err.Error())
	}
	return nil
}

// applyCacheEffects removes cache state made stale by the new record
// versions, then refreshes the hot tier and the derived feature
// vectors when the batch met the quality threshold.
func (c *Coordinator) applyCacheEffects(ctx context.Context, accepted []types.EntityRecord, report *types.QualityReport) {
	if report.Degraded() && len(accepted) > 0 {
		metrics.RecordCacheDegraded()
	}
	for i := range accepted {
		rec := accepted[i]

		// New versions invalidate cached entries and stored feature
		// vectors derived from older versions.
		c.cache.InvalidateEntity(rec.EntityType, rec.EntityID)
		if err := c.store.DeleteFeatureVectors(ctx, rec.EntityType, rec.EntityID); err != nil {
			logging.WithContext(ctx).Warn("stale vector cleanup failed",
				"entity_type", rec.EntityType.String(),
				"entity_id", rec.EntityID,
				"error", err)
		}

		if !report.Degraded() {
			c.cache.Put(rec.Key(), &rec, int64(rec.EstimateSize()), types.TierHot)
			c.refreshFeatures(ctx, &rec)
		}
	}
}

// refreshFeatures computes and persists the feature vector for a
// freshly persisted record. A failure here is not a batch failure; the
// lazy recompute path on the next read recovers.
func (c *Coordinator) refreshFeatures(ctx context.Context, rec *types.EntityRecord) {
	fv, err := features.Compute(rec, c.config.Features.SetVersion)
	if err != nil {
		logging.WithContext(ctx).Warn("feature compute failed",
			"entity_type", rec.EntityType.String(),
			"entity_id", rec.EntityID,
			"error", err)
		return
	}
	if err := c.store.PutFeatureVector(ctx, fv); err != nil {
		logging.WithContext(ctx).Warn("feature persist failed",
			"entity_type", rec.EntityType.String(),
			"entity_id", rec.EntityID,
			"error", err)
		return
	}
	c.cache.Put(fv.Key(), fv, int64(fv.EstimateSize()), types.TierHot)
}

// withRetry runs fn with bounded exponential backoff on retriable
// errors. Non-retriable errors return immediately.
func (c *Coordinator) withRetry(ctx context.Context, op string, fn func() error) error {
	maxRetries := c.config.Store.RetryMax
	delay := c.config.Store.RetryBaseDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = fn(); err == nil {
			return nil
		}
		if !errors.IsRetriable(err) {
			return err
		}
	}
	return errors.Wrapf(err, "%s: giving up after %d attempts", op, maxRetries+1)
}
