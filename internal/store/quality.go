package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// PutQualityReport persists a per-batch quality report. Reports are
// immutable; writing the same batch ID twice is an error.
func (s *Store) PutQualityReport(ctx context.Context, report *types.QualityReport) error {
	if s.isClosed() {
		return errors.ErrClosed
	}

	rejected, err := json.Marshal(report.RejectedRecordIDs)
	if err != nil {
		return fmt.Errorf("marshal rejected ids: %w", err)
	}
	failures, err := json.Marshal(report.RuleFailures)
	if err != nil {
		return fmt.Errorf("marshal rule failures: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quality_reports
		 (batch_id, total_records, valid_records, completeness, accuracy, accepted, rejected_ids, rule_failures, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.BatchID, report.TotalRecords, report.ValidRecords,
		report.CompletenessScore, report.AccuracyScore, report.Accepted,
		string(rejected), string(failures), report.GeneratedAt.UTC(),
	)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return errors.NewStoreIO("insert quality report", err)
	}
	return nil
}

// QualityHistory returns the most recent quality reports, newest
// first.
func (s *Store) QualityHistory(ctx context.Context, limit int) ([]types.QualityReport, error) {
	if s.isClosed() {
		return nil, errors.ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT batch_id, total_records, valid_records, completeness, accuracy, accepted, rejected_ids, rule_failures, generated_at
		 FROM quality_reports
		 ORDER BY generated_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		s.stats.Errors.Add(1)
		metrics.RecordStoreError()
		return nil, errors.NewStoreIO("query quality reports", err)
	}
	defer rows.Close()

	var reports []types.QualityReport
	for rows.Next() {
		var (
			r        types.QualityReport
			rejected string
			failures string
		)
		err := rows.Scan(&r.BatchID, &r.TotalRecords, &r.ValidRecords,
			&r.CompletenessScore, &r.AccuracyScore, &r.Accepted,
			&rejected, &failures, &r.GeneratedAt)
		if err != nil {
			s.stats.Errors.Add(1)
			metrics.RecordStoreError()
			return nil, errors.NewStoreIO("scan quality report", err)
		}

		if err := json.Unmarshal([]byte(rejected), &r.RejectedRecordIDs); err != nil {
			return nil, fmt.Errorf("unmarshal rejected ids: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &r.RuleFailures); err != nil {
			return nil, fmt.Errorf("unmarshal rule failures: %w", err)
		}
		r.GeneratedAt = r.GeneratedAt.UTC()

		reports = append(reports, r)
	}
	return reports, rows.Err()
}
