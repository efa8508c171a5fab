package coordinator

import (
	"context"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/features"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// GetEntity returns the latest record for an entity and the tier the
// lookup was served from. A store hit is backfilled into the warm
// tier, so repeated cold lookups climb toward hot through the normal
// promotion path.
func (c *Coordinator) GetEntity(ctx context.Context, entityType types.EntityType, entityID string) (*types.EntityRecord, types.Tier, error) {
	key := types.EntityKey(entityType, entityID)

	if v, tier, ok := c.cache.Lookup(key); ok {
		return v.(*types.EntityRecord), tier, nil
	}

	start := time.Now()
	record, found, err := c.store.Get(ctx, entityType, entityID)
	if err != nil {
		return nil, types.TierCold, err
	}
	if !found {
		return nil, types.TierCold, errors.NewNotFound(entityType.String(), entityID)
	}
	metrics.RecordLookupLatency(types.TierCold.String(),
		float64(time.Since(start).Microseconds())/1000.0)

	c.cache.Put(key, record, int64(record.EstimateSize()), types.TierWarm)
	return record, types.TierCold, nil
}

// GetFeatures returns the feature vector for an entity under the
// active feature set version and the tier it was served from. A full
// miss triggers a synchronous recomputation bounded by the configured
// timeout; concurrent misses for the same key share one computation.
func (c *Coordinator) GetFeatures(ctx context.Context, entityType types.EntityType, entityID string) (*types.FeatureVector, types.Tier, error) {
	setVersion := c.config.Features.SetVersion
	key := types.FeatureKey(entityType, entityID, setVersion)

	if v, tier, ok := c.cache.Lookup(key); ok {
		return v.(*types.FeatureVector), tier, nil
	}

	fv, found, err := c.store.GetFeatureVector(ctx, entityType, entityID, setVersion)
	if err != nil {
		return nil, types.TierCold, err
	}
	if found {
		c.cache.Put(key, fv, int64(fv.EstimateSize()), types.TierWarm)
		return fv, types.TierCold, nil
	}

	fv, err = c.recompute(ctx, entityType, entityID, setVersion)
	if err != nil {
		return nil, types.TierCold, err
	}
	return fv, types.TierCold, nil
}

// recompute derives, persists, and caches the feature vector from the
// entity's current record. Concurrent callers for the same key are
// collapsed; every caller observes the shared result or the shared
// error.
func (c *Coordinator) recompute(ctx context.Context, entityType types.EntityType, entityID string, setVersion int) (*types.FeatureVector, error) {
	key := types.FeatureKey(entityType, entityID, setVersion)
	timeout := c.config.Features.RecomputeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	ch := c.recomputeGroup.DoChan(key.String(), func() (any, error) {
		return c.computeAndStore(rctx, entityType, entityID, setVersion)
	})

	select {
	case <-rctx.Done():
		c.stats.RecomputeTimeouts.Add(1)
		metrics.RecordRecomputeTimeout()
		return nil, errors.Wrapf(errors.ErrRecomputeTimeout,
			"%s after %s", key.String(), timeout)
	case res := <-ch:
		if res.Err != nil {
			if errors.IsTimeout(res.Err) {
				c.stats.RecomputeTimeouts.Add(1)
				metrics.RecordRecomputeTimeout()
				return nil, errors.Wrap(errors.ErrRecomputeTimeout, res.Err.Error())
			}
			return nil, res.Err
		}
		c.stats.Recomputes.Add(1)
		metrics.RecordRecompute()
		metrics.RecordRecomputeLatency(float64(time.Since(start).Microseconds()) / 1000.0)
		return res.Val.(*types.FeatureVector), nil
	}
}

func (c *Coordinator) computeAndStore(ctx context.Context, entityType types.EntityType, entityID string, setVersion int) (*types.FeatureVector, error) {
	record, found, err := c.store.Get(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.NewNotFound(entityType.String(), entityID)
	}

	fv, err := features.Compute(record, setVersion)
	if err != nil {
		return nil, err
	}
	if err := c.store.PutFeatureVector(ctx, fv); err != nil {
		return nil, err
	}

	c.cache.Put(fv.Key(), fv, int64(fv.EstimateSize()), types.TierWarm)
	return fv, nil
}

// ForceRefresh bypasses quality gating for one entity: it reloads the
// latest persisted record, recomputes its feature vector, and places
// both directly in the hot tier. Operators use it when a degraded
// batch held back a hot refresh that is known to be safe.
func (c *Coordinator) ForceRefresh(ctx context.Context, entityType types.EntityType, entityID string) error {
	record, found, err := c.store.Get(ctx, entityType, entityID)
	if err != nil {
		return err
	}
	if !found {
		return errors.NewNotFound(entityType.String(), entityID)
	}

	c.cache.InvalidateEntity(entityType, entityID)
	c.cache.Put(record.Key(), record, int64(record.EstimateSize()), types.TierHot)

	setVersion := c.config.Features.SetVersion
	fv, err := features.Compute(record, setVersion)
	if err != nil {
		return err
	}
	if err := c.store.PutFeatureVector(ctx, fv); err != nil {
		return err
	}
	c.cache.Put(fv.Key(), fv, int64(fv.EstimateSize()), types.TierHot)

	c.stats.ForceRefreshes.Add(1)
	c.logger.Info("force refresh",
		"entity_type", entityType.String(),
		"entity_id", entityID,
		"version", record.Version)
	return nil
}
