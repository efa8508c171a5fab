package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	InitWithHandler(slog.NewJSONHandler(&buf, nil))
	return &buf
}

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("parse log line: %v", err)
	}
	return entry
}

func TestComponent(t *testing.T) {
	buf := captureJSON(t)

	Component("cache").Info("sweep complete", "expired", 3)

	entry := lastEntry(t, buf)
	if entry["component"] != "cache" {
		t.Errorf("component: %v", entry["component"])
	}
	if entry["msg"] != "sweep complete" {
		t.Errorf("msg: %v", entry["msg"])
	}
	if entry["expired"] != float64(3) {
		t.Errorf("expired: %v", entry["expired"])
	}
}

func TestWithContext(t *testing.T) {
	buf := captureJSON(t)

	ctx := ContextWithBatchID(ContextWithFeed(context.Background(), "espn"), "batch-7")
	WithContext(ctx).Info("batch ingested")

	entry := lastEntry(t, buf)
	if entry["batch_id"] != "batch-7" {
		t.Errorf("batch_id: %v", entry["batch_id"])
	}
	if entry["feed"] != "espn" {
		t.Errorf("feed: %v", entry["feed"])
	}
}

func TestWithContext_NoValues(t *testing.T) {
	buf := captureJSON(t)

	WithContext(context.Background()).Info("plain")

	entry := lastEntry(t, buf)
	if _, ok := entry["batch_id"]; ok {
		t.Error("batch_id should be absent")
	}
	if _, ok := entry["feed"]; ok {
		t.Error("feed should be absent")
	}
}
