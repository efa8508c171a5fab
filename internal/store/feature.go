package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// PutFeatureVector persists a feature vector. The write is rejected
// with ErrStaleSource when the vector's source record version is
// older than the current entity record version, so a concurrent
// entity update can never be shadowed by features computed from a
// superseded record. The stale check and the upsert share one
// transaction.
func (s *Store) PutFeatureVector(ctx context.Context, fv *types.FeatureVector) error {
	if s.isClosed() {
		return errors.ErrClosed
	}
	if len(fv.Names) != len(fv.Values) {
		return errors.NewInvalidValue("feature vector", fv.EntityID,
			fmt.Sprintf("names/values length mismatch: %d vs %d", len(fv.Names), len(fv.Values)))
	}

	names, err := json.Marshal(fv.Names)
	if err != nil {
		return fmt.Errorf("marshal names: %w", err)
	}
	vals, err := json.Marshal(fv.Values)
	if err != nil {
		return fmt.Errorf("marshal values: %w", err)
	}

	err = s.TransactionContext(ctx, func(tx *sql.Tx) error {
		var current sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT MAX(version) FROM entity_records
			 WHERE entity_type = ? AND entity_id = ?`,
			fv.EntityType.String(), fv.EntityID,
		).Scan(&current)
		if err != nil {
			return errors.NewStoreIO("read current version", err)
		}

		if !current.Valid {
			return errors.NewNotFound(fv.EntityType.String(), fv.EntityID)
		}
		if fv.SourceRecordVersion < int(current.Int64) {
			s.stats.StaleRejected.Add(1)
			metrics.RecordStaleRejection()
			return errors.NewStaleSource(fv.SourceRecordVersion, int(current.Int64))
		}

		computed := fv.ComputedAt
		if computed.IsZero() {
			computed = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO feature_vectors
			 (entity_type, entity_id, feature_set_version, source_record_version, names, vals, computed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			fv.EntityType.String(), fv.EntityID, fv.FeatureSetVersion,
			fv.SourceRecordVersion, string(names), string(vals), computed.UTC(),
		)
		if err != nil {
			return errors.NewStoreIO("upsert feature vector", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, errors.ErrStaleSource) {
			s.stats.Errors.Add(1)
			metrics.RecordStoreError()
		}
		return err
	}

	s.stats.VectorPuts.Add(1)
	metrics.RecordStoreOp("put_vector")
	return nil
}

// GetFeatureVector returns the stored vector for a key, or not-found.
func (s *Store) GetFeatureVector(ctx context.Context, entityType types.EntityType, entityID string, featureSetVersion int) (*types.FeatureVector, bool, error) {
	if s.isClosed() {
		return nil, false, errors.ErrClosed
	}

	var (
		fv    types.FeatureVector
		et    string
		names string
		vals  string
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT entity_type, entity_id, feature_set_version, source_record_version, names, vals, computed_at
		 FROM feature_vectors
		 WHERE entity_type = ? AND entity_id = ? AND feature_set_version = ?`,
		entityType.String(), entityID, featureSetVersion,
	).Scan(&et, &fv.EntityID, &fv.FeatureSetVersion, &fv.SourceRecordVersion,
		&names, &vals, &fv.ComputedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, false, errors.NewStoreIO("get feature vector", err)
	}

	parsed, err := types.ParseEntityType(et)
	if err != nil {
		return nil, false, err
	}
	fv.EntityType = parsed

	if err := json.Unmarshal([]byte(names), &fv.Names); err != nil {
		return nil, false, fmt.Errorf("unmarshal names: %w", err)
	}
	if err := json.Unmarshal([]byte(vals), &fv.Values); err != nil {
		return nil, false, fmt.Errorf("unmarshal values: %w", err)
	}
	fv.ComputedAt = fv.ComputedAt.UTC()

	s.stats.VectorGets.Add(1)
	metrics.RecordStoreOp("get_vector")
	return &fv, true, nil
}

// DeleteFeatureVectors removes all stored vectors for an entity.
// Used when the source entity is swept or force-refreshed.
func (s *Store) DeleteFeatureVectors(ctx context.Context, entityType types.EntityType, entityID string) error {
	if s.isClosed() {
		return errors.ErrClosed
	}

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM feature_vectors WHERE entity_type = ? AND entity_id = ?`,
		entityType.String(), entityID,
	)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return errors.NewStoreIO("delete feature vectors", err)
	}
	return nil
}
