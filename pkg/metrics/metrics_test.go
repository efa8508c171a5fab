package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewManager(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(
		WithNamespace("test"),
		WithSubsystem("cache"),
		WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
		WithMetricsEnabled(true),
		WithPrometheusRegistry(registry),
	)
	if m == nil {
		t.Fatal("manager should be created")
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if !strings.HasPrefix(f.GetName(), "test_") {
			t.Errorf("metric outside namespace: %s", f.GetName())
		}
	}
}

func TestRecordingFunctions(t *testing.T) {
	// The global manager registers once in init; the package functions
	// must all be callable.
	RecordCacheHit("hot")
	RecordCacheHit("warm")
	RecordCacheMiss()
	RecordPromotion("hot")
	RecordDemotion("hot")
	RecordEviction("warm")
	RecordExpired(3)
	RecordCacheDegraded()
	UpdateCacheSize("hot", 42)
	RecordLookupLatency("hot", 0.05)

	RecordBatchIngested()
	RecordBatchDegraded()
	RecordBatchFailed()
	RecordRecordsIngested(94)
	RecordRecordsRejected(6)
	UpdateQualityScores(0.94, 0.99)
	RecordIngestLatency(12.5)

	RecordRecompute()
	RecordRecomputeTimeout()
	RecordRecomputeLatency(35.0)
	RecordStaleRejection()

	RecordStoreOp("put")
	RecordStoreError()
	RecordStoreOpLatency("put", 1.2)

	RecordSweep(2, 17)

	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("global registry should hold metrics")
	}

	found := false
	for _, f := range families {
		if f.GetName() == "featurestore_cache_hits_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected featurestore_cache_hits_total in the registry")
	}
}
