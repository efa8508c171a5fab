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

// Put persists an entity record and returns the assigned version.
// First write gets version 1; updates to an existing entityId get
// previous+1. The store issues versions; callers never supply them.
func (s *Store) Put(ctx context.Context, record *types.EntityRecord) (int, error) {
	if s.isClosed() {
		return 0, errors.ErrClosed
	}
	if record.EntityID == "" {
		return 0, errors.NewMissingField("entity_id")
	}
	start := time.Now()

	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	// Serialize version assignment per key; unrelated keys proceed
	// independently.
	lock := s.keyLock(record.EntityType.String(), record.EntityID)
	lock.Lock()
	defer lock.Unlock()

	var version int
	err = s.TransactionContext(ctx, func(tx *sql.Tx) error {
		var current sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT MAX(version) FROM entity_records
			 WHERE entity_type = ? AND entity_id = ?`,
			record.EntityType.String(), record.EntityID,
		).Scan(&current)
		if err != nil {
			return errors.NewStoreIO("read current version", err)
		}

		version = 1
		if current.Valid {
			version = int(current.Int64) + 1
		}

		ingested := record.IngestedAt
		if ingested.IsZero() {
			ingested = time.Now().UTC()
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO entity_records
			 (entity_type, entity_id, version, payload, source_ts, ingested_at, batch_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.EntityType.String(), record.EntityID, version,
			string(payload), record.SourceTimestamp.UTC(), ingested.UTC(), record.BatchID,
		)
		if err != nil {
			return errors.NewStoreIO("insert entity record", err)
		}
		return nil
	})
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return 0, err
	}

	s.stats.Puts.Add(1)
	metrics.RecordStoreOp("put")
	metrics.RecordStoreOpLatency("put", float64(time.Since(start).Microseconds())/1000.0)
	record.Version = version
	return version, nil
}

// Get returns the latest version of an entity record.
func (s *Store) Get(ctx context.Context, entityType types.EntityType, entityID string) (*types.EntityRecord, bool, error) {
	if s.isClosed() {
		return nil, false, errors.ErrClosed
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT entity_type, entity_id, version, payload, source_ts, ingested_at, batch_id
		 FROM entity_records
		 WHERE entity_type = ? AND entity_id = ?
		 ORDER BY version DESC
		 LIMIT 1`,
		entityType.String(), entityID,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, false, errors.NewStoreIO("get entity record", err)
	}

	s.stats.Gets.Add(1)
	metrics.RecordStoreOp("get")
	return rec, true, nil
}

// CurrentVersion returns the latest version number for an entity, or
// 0 when the entity does not exist.
func (s *Store) CurrentVersion(ctx context.Context, entityType types.EntityType, entityID string) (int, error) {
	if s.isClosed() {
		return 0, errors.ErrClosed
	}

	var current sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(version) FROM entity_records
		 WHERE entity_type = ? AND entity_id = ?`,
		entityType.String(), entityID,
	).Scan(&current)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return 0, errors.NewStoreIO("read current version", err)
	}

	if !current.Valid {
		return 0, nil
	}
	return int(current.Int64), nil
}

// =============================================================================
// Range Queries
// =============================================================================

// QueryFilter selects latest-version entity records by type and
// source-time range. Cursor is opaque; pass the NextCursor of the
// previous page to continue a scan.
type QueryFilter struct {
	EntityType types.EntityType
	Since      time.Time
	Until      time.Time
	Limit      int
	Cursor     string
}

// QueryPage is one page of query results.
type QueryPage struct {
	Records []types.EntityRecord

	// NextCursor is empty when the scan is exhausted.
	NextCursor string
}

// defaultQueryLimit bounds unpaginated scans.
const defaultQueryLimit = 500

// Query returns latest-version records matching the filter, ordered
// by (source_ts, entity_id) ascending, using the secondary index.
func (s *Store) Query(ctx context.Context, filter QueryFilter) (*QueryPage, error) {
	if s.isClosed() {
		return nil, errors.ErrClosed
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}

	cur, err := decodeCursor(filter.Cursor)
	if err != nil {
		return nil, err
	}

	until := filter.Until
	if until.IsZero() {
		until = time.Now().UTC().Add(24 * 365 * time.Hour)
	}

	// Resume position: strictly after the cursor row in
	// (source_ts, entity_id) order.
	afterTs := filter.Since.UTC().Add(-time.Microsecond)
	afterID := ""
	if cur != nil {
		afterTs = cur.SourceTs.UTC()
		afterID = cur.EntityID
	}

	// Latest version per entity via QUALIFY, then page through the
	// (source_ts, entity_id) order. Fetch limit+1 to detect the end.
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type, entity_id, version, payload, source_ts, ingested_at, batch_id
		 FROM entity_records
		 WHERE entity_type = ?
		   AND source_ts >= ?
		   AND source_ts <= ?
		   AND (source_ts > ? OR (source_ts = ? AND entity_id > ?))
		 QUALIFY row_number() OVER (PARTITION BY entity_id ORDER BY version DESC) = 1
		 ORDER BY source_ts, entity_id
		 LIMIT ?`,
		filter.EntityType.String(), filter.Since.UTC(), until.UTC(),
		afterTs, afterTs, afterID, limit+1,
	)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, errors.NewStoreIO("query entity records", err)
	}
	defer rows.Close()

	page := &QueryPage{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			s.stats.Errors.Add(1)
			metrics.RecordStoreError()
			return nil, errors.NewStoreIO("scan entity record", err)
		}
		page.Records = append(page.Records, *rec)
	}
	if err := rows.Err(); err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, errors.NewStoreIO("iterate entity records", err)
	}

	if len(page.Records) > limit {
		page.Records = page.Records[:limit]
		last := page.Records[limit-1]
		page.NextCursor = encodeCursor(last.SourceTimestamp, last.EntityID)
	}

	s.stats.Queries.Add(1)
	metrics.RecordStoreOp("query")
	return page, nil
}

// rowScanner abstracts sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one entity_records row.
func scanRecord(row rowScanner) (*types.EntityRecord, error) {
	var (
		entityType string
		rec        types.EntityRecord
		payload    string
	)

	err := row.Scan(&entityType, &rec.EntityID, &rec.Version, &payload,
		&rec.SourceTimestamp, &rec.IngestedAt, &rec.BatchID)
	if err != nil {
		return nil, err
	}

	et, err := types.ParseEntityType(entityType)
	if err != nil {
		return nil, err
	}
	rec.EntityType = et

	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	rec.SourceTimestamp = rec.SourceTimestamp.UTC()
	rec.IngestedAt = rec.IngestedAt.UTC()
	return &rec, nil
}
