package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sportsedge/featurestore/internal/errors"
)

// archiveRow is a swept entity record in Parquet form.
type archiveRow struct {
	EntityType string `parquet:"entity_type,zstd"`
	EntityID   string `parquet:"entity_id,zstd"`
	Version    int32  `parquet:"version"`
	Payload    string `parquet:"payload,zstd"`
	SourceTs   int64  `parquet:"source_ts"`
	IngestedAt int64  `parquet:"ingested_at"`
	BatchID    string `parquet:"batch_id,zstd"`
}

// archiveSwept writes every row about to be swept into a
// zstd-compressed Parquet file named by the sweep time. Returns the
// file path.
func (s *Store) archiveSwept(ctx context.Context, cutoff time.Time) (string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type, entity_id, version, payload, source_ts, ingested_at, batch_id
		 FROM entity_records WHERE `+sweepPredicate+`
		 ORDER BY entity_type, entity_id, version`,
		cutoff.UTC(),
	)
	if err != nil {
		return "", errors.NewStoreIO("select archive rows", err)
	}
	defer rows.Close()

	var out []archiveRow
	for rows.Next() {
		var (
			r          archiveRow
			sourceTs   time.Time
			ingestedAt time.Time
		)
		err := rows.Scan(&r.EntityType, &r.EntityID, &r.Version, &r.Payload,
			&sourceTs, &ingestedAt, &r.BatchID)
		if err != nil {
			return "", errors.NewStoreIO("scan archive row", err)
		}
		r.SourceTs = sourceTs.UnixMilli()
		r.IngestedAt = ingestedAt.UnixMilli()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return "", errors.NewStoreIO("iterate archive rows", err)
	}
	if len(out) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(s.config.ArchiveDir, 0755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	name := fmt.Sprintf("sweep-%s.parquet", time.Now().UTC().Format("2006-01-02_15-04-05"))
	path := filepath.Join(s.config.ArchiveDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	writer := parquet.NewGenericWriter[archiveRow](f, parquet.Compression(&parquet.Zstd))

	if _, err := writer.Write(out); err != nil {
		f.Close()
		return "", fmt.Errorf("write archive rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("close archive writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	return path, nil
}
