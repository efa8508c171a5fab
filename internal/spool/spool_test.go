package spool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sportsedge/featurestore/internal/types"
)

type fakeIngester struct {
	inputs []types.RawInput
	err    error
}

func (f *fakeIngester) IngestRaw(ctx context.Context, input types.RawInput) (*types.QualityReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, input)
	return &types.QualityReport{
		BatchID:      "batch-1",
		TotalRecords: 1,
		ValidRecords: 1,
		Accepted:     true,
	}, nil
}

func writeSpoolFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const payload = `{"feed":"espn","sport":"basketball","league":"nba","data":{"events":[]}}`

func TestScan_IngestsAndRenames(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := NewWatcher(dir, time.Second, ing)

	path := writeSpoolFile(t, dir, "scoreboard.json", payload)

	if n := w.Scan(context.Background()); n != 1 {
		t.Fatalf("expected 1 file ingested, got %d", n)
	}
	if len(ing.inputs) != 1 || ing.inputs[0].Feed != "espn" {
		t.Fatalf("ingester inputs: %+v", ing.inputs)
	}
	if ing.inputs[0].Sport != "basketball" || ing.inputs[0].League != "nba" {
		t.Errorf("payload fields: %+v", ing.inputs[0])
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file should be renamed away")
	}
	if _, err := os.Stat(path + ".done"); err != nil {
		t.Errorf(".done file missing: %v", err)
	}
}

func TestScan_ProcessesOldestFirst(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := NewWatcher(dir, time.Second, ing)

	for _, name := range []string{"c.json", "a.json", "b.json"} {
		feed := fmt.Sprintf(`{"feed":%q,"data":{}}`, name)
		writeSpoolFile(t, dir, name, feed)
	}

	if n := w.Scan(context.Background()); n != 3 {
		t.Fatalf("expected 3 files, got %d", n)
	}
	for i, want := range []string{"a.json", "b.json", "c.json"} {
		if ing.inputs[i].Feed != want {
			t.Errorf("position %d: expected %s, got %s", i, want, ing.inputs[i].Feed)
		}
	}
}

func TestScan_MalformedFileMarkedFailed(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := NewWatcher(dir, time.Second, ing)

	path := writeSpoolFile(t, dir, "garbage.json", "{not json")

	if n := w.Scan(context.Background()); n != 0 {
		t.Fatalf("malformed file must not count as ingested, got %d", n)
	}
	if len(ing.inputs) != 0 {
		t.Error("ingester should not see malformed files")
	}
	if _, err := os.Stat(path + ".failed"); err != nil {
		t.Errorf(".failed file missing: %v", err)
	}
}

func TestScan_IngestErrorMarkedFailed(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{err: fmt.Errorf("store unavailable")}
	w := NewWatcher(dir, time.Second, ing)

	path := writeSpoolFile(t, dir, "scoreboard.json", payload)

	if n := w.Scan(context.Background()); n != 0 {
		t.Fatalf("failed ingest must not count, got %d", n)
	}
	if _, err := os.Stat(path + ".failed"); err != nil {
		t.Errorf(".failed file missing: %v", err)
	}
}

func TestScan_IgnoresNonPayloadFiles(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := NewWatcher(dir, time.Second, ing)

	writeSpoolFile(t, dir, "notes.txt", "not a payload")
	writeSpoolFile(t, dir, "old.json.done", payload)
	writeSpoolFile(t, dir, "bad.json.failed", payload)
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	if n := w.Scan(context.Background()); n != 0 {
		t.Fatalf("expected nothing ingested, got %d", n)
	}
	if len(ing.inputs) != 0 {
		t.Errorf("ingester saw %d inputs", len(ing.inputs))
	}
}

func TestScan_CompletedFilesNotReprocessed(t *testing.T) {
	dir := t.TempDir()
	ing := &fakeIngester{}
	w := NewWatcher(dir, time.Second, ing)

	writeSpoolFile(t, dir, "scoreboard.json", payload)

	w.Scan(context.Background())
	if n := w.Scan(context.Background()); n != 0 {
		t.Fatalf("second scan must be a no-op, got %d", n)
	}
	if len(ing.inputs) != 1 {
		t.Errorf("file ingested %d times", len(ing.inputs))
	}
}
