package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = "" // in-memory
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(entityType types.EntityType, id string, sourceTS time.Time) *types.EntityRecord {
	return &types.EntityRecord{
		EntityType: entityType,
		EntityID:   id,
		Payload: map[string]any{
			"home_team_score": 101.0,
			"status":          "STATUS_FINAL",
		},
		SourceTimestamp: sourceTS,
		IngestedAt:      sourceTS.Add(time.Minute),
		BatchID:         "batch-1",
	}
}

func TestPut_MonotonicVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	for want := 1; want <= 5; want++ {
		rec := record(types.EntityEvent, "e1", ts)
		got, err := s.Put(ctx, rec)
		if err != nil {
			t.Fatalf("put %d: %v", want, err)
		}
		if got != want {
			t.Fatalf("version: expected %d, got %d", want, got)
		}
		if rec.Version != want {
			t.Fatalf("record version not set: %d", rec.Version)
		}
	}

	// Another entity starts back at 1.
	v, err := s.Put(ctx, record(types.EntityEvent, "e2", ts))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("new entity: expected version 1, got %d", v)
	}

	// Same id under a different type is a distinct entity.
	v, err = s.Put(ctx, record(types.EntityResult, "e1", ts))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("same id, other type: expected version 1, got %d", v)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	in := record(types.EntityEvent, "e1", ts)
	in.Payload["venue"] = "Fenway Park"
	if _, err := s.Put(ctx, in); err != nil {
		t.Fatal(err)
	}

	out, found, err := s.Get(ctx, types.EntityEvent, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected record")
	}
	if out.Version != 1 || out.EntityID != "e1" {
		t.Errorf("identity: %+v", out)
	}
	if v, _ := out.Str("venue"); v != "Fenway Park" {
		t.Errorf("payload round-trip: venue %q", v)
	}
	if score, _ := out.Float("home_team_score"); score != 101 {
		t.Errorf("payload round-trip: score %v", score)
	}
	if !out.SourceTimestamp.Equal(ts) {
		t.Errorf("source ts: expected %v, got %v", ts, out.SourceTimestamp)
	}
	if out.BatchID != "batch-1" {
		t.Errorf("batch id: %q", out.BatchID)
	}
}

func TestGet_LatestVersionWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)

	first := record(types.EntityEvent, "e1", ts)
	first.Payload["status"] = "STATUS_IN_PROGRESS"
	s.Put(ctx, first)

	second := record(types.EntityEvent, "e1", ts.Add(time.Hour))
	second.Payload["status"] = "STATUS_FINAL"
	s.Put(ctx, second)

	out, found, err := s.Get(ctx, types.EntityEvent, "e1")
	if err != nil || !found {
		t.Fatalf("get: %v %v", found, err)
	}
	if out.Version != 2 {
		t.Errorf("expected version 2, got %d", out.Version)
	}
	if status, _ := out.Str("status"); status != "STATUS_FINAL" {
		t.Errorf("expected latest payload, got %q", status)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, found, err := s.Get(context.Background(), types.EntityEvent, "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
}

func TestCurrentVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	if v, err := s.CurrentVersion(ctx, types.EntityEvent, "e1"); err != nil || v != 0 {
		t.Fatalf("missing entity: expected 0, got %d (%v)", v, err)
	}

	s.Put(ctx, record(types.EntityEvent, "e1", ts))
	s.Put(ctx, record(types.EntityEvent, "e1", ts))

	if v, err := s.CurrentVersion(ctx, types.EntityEvent, "e1"); err != nil || v != 2 {
		t.Fatalf("expected 2, got %d (%v)", v, err)
	}
}

// =============================================================================
// Feature vectors
// =============================================================================

func vector(id string, sourceVersion int) *types.FeatureVector {
	return &types.FeatureVector{
		EntityType:          types.EntityEvent,
		EntityID:            id,
		FeatureSetVersion:   1,
		SourceRecordVersion: sourceVersion,
		Names:               []string{"score_difference", "total_score"},
		Values:              []float64{3, 199},
		ComputedAt:          time.Now().UTC(),
	}
}

func TestPutFeatureVector_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, record(types.EntityEvent, "e1", time.Now().UTC()))

	if err := s.PutFeatureVector(ctx, vector("e1", 1)); err != nil {
		t.Fatalf("put vector: %v", err)
	}

	out, found, err := s.GetFeatureVector(ctx, types.EntityEvent, "e1", 1)
	if err != nil || !found {
		t.Fatalf("get vector: %v %v", found, err)
	}
	if v, ok := out.Get("total_score"); !ok || v != 199 {
		t.Errorf("vector round-trip: total_score %v %v", v, ok)
	}
	if out.SourceRecordVersion != 1 {
		t.Errorf("source version: %d", out.SourceRecordVersion)
	}
}

func TestPutFeatureVector_StaleSourceRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	s.Put(ctx, record(types.EntityEvent, "e1", ts))
	s.Put(ctx, record(types.EntityEvent, "e1", ts)) // current version 2

	err := s.PutFeatureVector(ctx, vector("e1", 1))
	if !errors.Is(err, errors.ErrStaleSource) {
		t.Fatalf("expected ErrStaleSource, got %v", err)
	}
	if s.Stats().StaleRejected != 1 {
		t.Errorf("stale rejection not counted")
	}

	if err := s.PutFeatureVector(ctx, vector("e1", 2)); err != nil {
		t.Fatalf("current version should be accepted: %v", err)
	}
}

func TestPutFeatureVector_MissingEntity(t *testing.T) {
	s := newTestStore(t)

	err := s.PutFeatureVector(context.Background(), vector("ghost", 1))
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestDeleteFeatureVectors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, record(types.EntityEvent, "e1", time.Now().UTC()))
	s.PutFeatureVector(ctx, vector("e1", 1))

	if err := s.DeleteFeatureVectors(ctx, types.EntityEvent, "e1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.GetFeatureVector(ctx, types.EntityEvent, "e1", 1); found {
		t.Error("vector should be gone")
	}
}

// =============================================================================
// Quality reports
// =============================================================================

func TestQualityReports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		report := &types.QualityReport{
			BatchID:           fmt.Sprintf("batch-%d", i),
			TotalRecords:      100,
			ValidRecords:      94,
			CompletenessScore: 0.94,
			AccuracyScore:     0.99,
			RejectedRecordIDs: []string{"r1", "r2"},
			RuleFailures:      map[string]int{"score-range": 6},
			Accepted:          false,
			GeneratedAt:       base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.PutQualityReport(ctx, report); err != nil {
			t.Fatalf("put report %d: %v", i, err)
		}
	}

	reports, err := s.QualityHistory(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].BatchID != "batch-2" {
		t.Errorf("newest first: got %s", reports[0].BatchID)
	}
	if reports[0].RuleFailures["score-range"] != 6 {
		t.Errorf("rule failures round-trip: %v", reports[0].RuleFailures)
	}
	if len(reports[0].RejectedRecordIDs) != 2 {
		t.Errorf("rejected ids round-trip: %v", reports[0].RejectedRecordIDs)
	}
}

// =============================================================================
// Pagination
// =============================================================================

func TestQuery_CursorPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		rec := record(types.EntityEvent, fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Hour))
		if _, err := s.Put(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	// A second version of e3 must not produce a duplicate row.
	s.Put(ctx, record(types.EntityEvent, "e3", base.Add(3*time.Hour)))

	var got []string
	cursor := ""
	pages := 0
	for {
		page, err := s.Query(ctx, QueryFilter{
			EntityType: types.EntityEvent,
			Since:      base,
			Limit:      3,
			Cursor:     cursor,
		})
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range page.Records {
			got = append(got, r.EntityID)
		}
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		if pages > 10 {
			t.Fatal("cursor did not terminate")
		}
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	expected := []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6"}
	if len(got) != len(expected) {
		t.Fatalf("expected %d records, got %d: %v", len(expected), len(got), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], got[i])
		}
	}
}

func TestQuery_TimeRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.Put(ctx, record(types.EntityEvent, fmt.Sprintf("e%d", i), base.Add(time.Duration(i)*time.Hour)))
	}

	page, err := s.Query(ctx, QueryFilter{
		EntityType: types.EntityEvent,
		Since:      base.Add(time.Hour),
		Until:      base.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Records) != 3 {
		t.Fatalf("expected e1..e3, got %d records", len(page.Records))
	}
}

func TestQuery_InvalidCursor(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Query(context.Background(), QueryFilter{
		EntityType: types.EntityEvent,
		Cursor:     "not-base64-json!",
	})
	if !errors.Is(err, errors.ErrInvalidCursor) {
		t.Fatalf("expected ErrInvalidCursor, got %v", err)
	}
}

// =============================================================================
// Retention
// =============================================================================

func TestSweepBefore_PerEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	// Entirely old entity: two versions, both before cutoff.
	s.Put(ctx, record(types.EntityEvent, "old", cutoff.Add(-48*time.Hour)))
	s.Put(ctx, record(types.EntityEvent, "old", cutoff.Add(-24*time.Hour)))

	// Mixed entity: an old version, then a recent one. Kept whole.
	s.Put(ctx, record(types.EntityEvent, "mixed", cutoff.Add(-24*time.Hour)))
	s.Put(ctx, record(types.EntityEvent, "mixed", cutoff.Add(24*time.Hour)))

	// Recent entity.
	s.Put(ctx, record(types.EntityEvent, "fresh", cutoff.Add(48*time.Hour)))

	s.PutFeatureVector(ctx, vector("old", 2))
	s.PutFeatureVector(ctx, vector("fresh", 1))

	result, err := s.SweepBefore(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}

	if result.EntitiesDeleted != 1 {
		t.Errorf("expected 1 entity deleted, got %d", result.EntitiesDeleted)
	}
	if result.RecordsDeleted != 2 {
		t.Errorf("expected 2 record rows deleted, got %d", result.RecordsDeleted)
	}
	if result.VectorsDeleted != 1 {
		t.Errorf("expected 1 vector deleted, got %d", result.VectorsDeleted)
	}
	if len(result.Keys) != 1 || result.Keys[0].EntityID != "old" {
		t.Errorf("unexpected swept keys: %v", result.Keys)
	}

	if _, found, _ := s.Get(ctx, types.EntityEvent, "old"); found {
		t.Error("old entity should be gone")
	}
	if _, found, _ := s.Get(ctx, types.EntityEvent, "mixed"); !found {
		t.Error("entity with a recent version must survive whole")
	}
	if _, found, _ := s.GetFeatureVector(ctx, types.EntityEvent, "fresh", 1); !found {
		t.Error("vector of surviving entity must remain")
	}
}

func TestSweepBefore_NothingToDo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Put(ctx, record(types.EntityEvent, "fresh", time.Now().UTC()))

	result, err := s.SweepBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if result.EntitiesDeleted != 0 || result.RecordsDeleted != 0 {
		t.Errorf("nothing should be swept: %+v", result)
	}
	if result.ArchiveFile != "" {
		t.Error("no archive for an empty sweep")
	}
}

func TestSweepBefore_Archives(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = ""
	cfg.ArchiveDir = filepath.Join(dir, "archive")
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Put(ctx, record(types.EntityEvent, "old", cutoff.Add(-time.Hour)))

	result, err := s.SweepBefore(ctx, cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if result.ArchiveFile == "" {
		t.Fatal("expected an archive file")
	}
	info, err := os.Stat(result.ArchiveFile)
	if err != nil {
		t.Fatalf("archive missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("archive file is empty")
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestClosedStore(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := s.Put(ctx, record(types.EntityEvent, "e1", time.Now())); !errors.Is(err, errors.ErrClosed) {
		t.Errorf("put: expected ErrClosed, got %v", err)
	}
	if _, _, err := s.Get(ctx, types.EntityEvent, "e1"); !errors.Is(err, errors.ErrClosed) {
		t.Errorf("get: expected ErrClosed, got %v", err)
	}
	if _, err := s.SweepBefore(ctx, time.Now()); !errors.Is(err, errors.ErrClosed) {
		t.Errorf("sweep: expected ErrClosed, got %v", err)
	}
}

func TestPut_EmptyEntityID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(context.Background(), record(types.EntityEvent, "", time.Now()))
	if !errors.Is(err, errors.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 1, 19, 30, 0, 0, time.UTC)
	encoded := encodeCursor(ts, "e42")

	cur, err := decodeCursor(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !cur.SourceTs.Equal(ts) || cur.EntityID != "e42" {
		t.Errorf("round trip: %+v", cur)
	}

	if cur, err := decodeCursor(""); err != nil || cur != nil {
		t.Errorf("empty cursor: %v %v", cur, err)
	}
}
