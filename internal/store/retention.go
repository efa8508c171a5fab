package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// SweepResult holds the outcome of a retention sweep.
type SweepResult struct {
	Cutoff          time.Time
	EntitiesDeleted int
	RecordsDeleted  int
	VectorsDeleted  int

	// Keys are the entity keys removed, for cache invalidation.
	Keys []types.CacheKey

	// ArchiveFile is the Parquet archive path, empty when archiving
	// is disabled or nothing was swept.
	ArchiveFile string
}

// sweepPredicate selects entities whose newest record predates the
// cutoff. Retention is per entity: an entity with any recent version
// is kept whole.
const sweepPredicate = `(entity_type, entity_id) IN (
	SELECT entity_type, entity_id FROM entity_records
	GROUP BY entity_type, entity_id
	HAVING MAX(source_ts) < ?
)`

// SweepBefore deletes all entities whose newest record is older than
// cutoff, along with their feature vectors. When an archive directory
// is configured, the deleted rows are written to a Parquet file
// first. This is an explicit maintenance operation, distinct from
// capacity-driven cache eviction.
func (s *Store) SweepBefore(ctx context.Context, cutoff time.Time) (*SweepResult, error) {
	if s.isClosed() {
		return nil, errors.ErrClosed
	}

	log := logging.Component("store")
	result := &SweepResult{Cutoff: cutoff.UTC()}

	// Collect affected keys before touching any rows.
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type, entity_id FROM entity_records
		 GROUP BY entity_type, entity_id
		 HAVING MAX(source_ts) < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, errors.NewStoreIO("select sweep candidates", err)
	}

	for rows.Next() {
		var et, id string
		if err := rows.Scan(&et, &id); err != nil {
			rows.Close()
			s.stats.Errors.Add(1)
			metrics.RecordStoreError()
			return nil, errors.NewStoreIO("scan sweep candidate", err)
		}
		parsed, err := types.ParseEntityType(et)
		if err != nil {
			rows.Close()
			return nil, err
		}
		result.Keys = append(result.Keys, types.EntityKey(parsed, id))
	}
	if err := rows.Close(); err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, errors.NewStoreIO("close sweep candidates", err)
	}

	result.EntitiesDeleted = len(result.Keys)
	if result.EntitiesDeleted == 0 {
		return result, nil
	}

	// Archive before delete so a failed archive aborts the sweep.
	if s.config.ArchiveDir != "" {
		archive, err := s.archiveSwept(ctx, cutoff)
		if err != nil {
			s.stats.Errors.Add(1)
			metrics.RecordStoreError()
			return nil, err
		}
		result.ArchiveFile = archive
	}

	err = s.TransactionContext(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM entity_records WHERE `+sweepPredicate, cutoff.UTC())
		if err != nil {
			return errors.NewStoreIO("delete swept records", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			result.RecordsDeleted = int(n)
		}

		res, err = tx.ExecContext(ctx,
			`DELETE FROM feature_vectors WHERE (entity_type, entity_id) NOT IN (
				SELECT DISTINCT entity_type, entity_id FROM entity_records
			)`)
		if err != nil {
			return errors.NewStoreIO("delete orphaned vectors", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			result.VectorsDeleted = int(n)
		}
		return nil
	})
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, err
	}

	s.stats.SweepsRun.Add(1)
	s.stats.RecordsSwept.Add(int64(result.RecordsDeleted))

	log.Info("retention sweep complete",
		"cutoff", result.Cutoff,
		"entities", result.EntitiesDeleted,
		"records", result.RecordsDeleted,
		"vectors", result.VectorsDeleted,
		"archive", result.ArchiveFile)

	return result, nil
}
