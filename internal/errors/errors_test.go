package errors

import (
	"errors"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"plain sentinel", ErrNotFound, true},
		{"entity sentinel", ErrEntityNotFound, true},
		{"feature sentinel", ErrFeatureNotFound, true},
		{"constructor", NewNotFound("event", "e1"), true},
		{"wrapped", Wrap(ErrNotFound, "lookup"), true},
		{"other", ErrStoreIO, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestIsRetriable(t *testing.T) {
	if !IsRetriable(NewStoreIO("insert", errors.New("disk full"))) {
		t.Error("store I/O failures should be retriable")
	}
	if !IsRetriable(ErrRecomputeTimeout) {
		t.Error("recompute timeouts should be retriable")
	}
	if IsRetriable(ErrStaleSource) {
		t.Error("stale source is deterministic, not retriable")
	}
	if IsRetriable(NewNotFound("event", "x")) {
		t.Error("not found is not retriable")
	}
}

func TestNewStaleSource(t *testing.T) {
	err := NewStaleSource(3, 5)
	if !Is(err, ErrStaleSource) {
		t.Fatal("should wrap ErrStaleSource")
	}
	expected := "source version 3 behind current 5: feature vector source version is stale"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("wrapping nil should stay nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestWrapf_PreservesSentinel(t *testing.T) {
	err := Wrapf(ErrEmptyBatch, "feed %s", "espn")
	if !Is(err, ErrEmptyBatch) {
		t.Error("wrapped error should match sentinel")
	}
	if err.Error() != "feed espn: empty batch" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	verr := NewValidationErrors()
	if verr.HasErrors() {
		t.Error("new collector has no errors")
	}
	if verr.Err() != nil {
		t.Error("empty collector should yield nil")
	}

	verr.AddField("cache.hot_capacity", "must be positive")
	verr.AddMissing("store.path")
	verr.Add(nil)

	if len(verr.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(verr.Errors))
	}
	if verr.Err() == nil {
		t.Fatal("collector with errors should yield error")
	}
	if !Is(verr.Err(), ErrInvalidConfig) {
		t.Error("should unwrap to first error's sentinel")
	}
}
