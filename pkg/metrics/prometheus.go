// Package metrics provides Prometheus metrics for the featurestore service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the featurestore.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Cache Metrics - Tier behavior is the core of this service
	cacheHits       *prometheus.CounterVec
	cacheMisses     prometheus.Counter
	cachePromotions *prometheus.CounterVec
	cacheDemotions  *prometheus.CounterVec
	cacheEvictions  *prometheus.CounterVec
	cacheExpired    prometheus.Counter
	cacheDegraded   prometheus.Counter
	cacheSize       *prometheus.GaugeVec
	lookupLatency   *prometheus.HistogramVec

	// Ingestion Metrics
	batchesIngested   prometheus.Counter
	batchesDegraded   prometheus.Counter
	batchesFailed     prometheus.Counter
	recordsIngested   prometheus.Counter
	recordsRejected   prometheus.Counter
	completenessScore prometheus.Gauge
	accuracyScore     prometheus.Gauge
	ingestLatency     prometheus.Histogram

	// Feature Metrics
	recomputes        prometheus.Counter
	recomputeTimeouts prometheus.Counter
	recomputeLatency  prometheus.Histogram
	staleRejections   prometheus.Counter

	// Store Metrics
	storeOps       *prometheus.CounterVec
	storeErrors    prometheus.Counter
	storeOpLatency *prometheus.HistogramVec

	// Retention Metrics
	sweepsRun     prometheus.Counter
	recordsSwept  prometheus.Counter
	entitiesSwept prometheus.Counter
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Registry returns the registry backing the global manager, for
// serving /metrics.
func Registry() *prometheus.Registry {
	return customRegistry
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "featurestore",
		subsystem:        "cache",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Cache metrics
	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "hits_total",
			Help:      "Total cache hits by tier",
		},
		[]string{"tier"},
	)

	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "misses_total",
		Help:      "Total full cache misses (fell through to the store)",
	})

	m.cachePromotions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "promotions_total",
			Help:      "Total entry promotions by destination tier",
		},
		[]string{"to"},
	)

	m.cacheDemotions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "demotions_total",
			Help:      "Total entry demotions by source tier",
		},
		[]string{"from"},
	)

	m.cacheEvictions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "evictions_total",
			Help:      "Total capacity-driven evictions by tier",
		},
		[]string{"tier"},
	)

	m.cacheExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "expired_total",
		Help:      "Total entries removed by TTL sweep",
	})

	m.cacheDegraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "degraded_total",
		Help:      "Total bookkeeping inconsistencies absorbed as misses",
	})

	m.cacheSize = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "entries",
			Help:      "Current entry count by tier",
		},
		[]string{"tier"},
	)

	m.lookupLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "lookup_latency_milliseconds",
			Help:      "Histogram of cache lookup latency in milliseconds by tier",
			Buckets:   m.histogramBuckets,
		},
		[]string{"tier"},
	)

	// Ingestion metrics
	m.batchesIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "batches_total",
		Help:      "Total batches ingested",
	})

	m.batchesDegraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "batches_degraded_total",
		Help:      "Total batches persisted below the quality threshold",
	})

	m.batchesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "batches_failed_total",
		Help:      "Total batches that failed after exhausting retries",
	})

	m.recordsIngested = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "records_total",
		Help:      "Total records persisted",
	})

	m.recordsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "records_rejected_total",
		Help:      "Total records rejected by hard validation rules",
	})

	m.completenessScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "completeness_score",
		Help:      "Completeness score of the most recent batch",
	})

	m.accuracyScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "accuracy_score",
		Help:      "Accuracy score of the most recent batch",
	})

	m.ingestLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "ingest",
		Name:      "batch_latency_milliseconds",
		Help:      "Histogram of end-to-end batch ingestion latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Feature metrics
	m.recomputes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "features",
		Name:      "recomputes_total",
		Help:      "Total synchronous feature recomputations on full miss",
	})

	m.recomputeTimeouts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "features",
		Name:      "recompute_timeouts_total",
		Help:      "Total recomputations that exceeded the deadline",
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "features",
		Name:      "recompute_latency_milliseconds",
		Help:      "Histogram of synchronous recomputation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.staleRejections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "features",
		Name:      "stale_rejections_total",
		Help:      "Total feature vector writes rejected for stale source versions",
	})

	// Store metrics
	m.storeOps = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total store operations by kind",
		},
		[]string{"op"},
	)

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "store",
		Name:      "errors_total",
		Help:      "Total store I/O errors",
	})

	m.storeOpLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "store",
			Name:      "operation_latency_milliseconds",
			Help:      "Histogram of store operation latency in milliseconds by kind",
			Buckets:   m.histogramBuckets,
		},
		[]string{"op"},
	)

	// Retention metrics
	m.sweepsRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "retention",
		Name:      "sweeps_total",
		Help:      "Total retention sweeps run",
	})

	m.recordsSwept = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "retention",
		Name:      "records_swept_total",
		Help:      "Total entity record rows deleted by retention sweeps",
	})

	m.entitiesSwept = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "retention",
		Name:      "entities_swept_total",
		Help:      "Total entities deleted by retention sweeps",
	})
}

// =============================================================================
// Cache Metrics Functions
// =============================================================================

// RecordCacheHit increments the hit counter for a tier.
func RecordCacheHit(tier string) {
	globalManager.cacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss increments the full-miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordPromotion increments the promotion counter toward a tier.
func RecordPromotion(to string) {
	globalManager.cachePromotions.WithLabelValues(to).Inc()
}

// RecordDemotion increments the demotion counter from a tier.
func RecordDemotion(from string) {
	globalManager.cacheDemotions.WithLabelValues(from).Inc()
}

// RecordEviction increments the eviction counter for a tier.
func RecordEviction(tier string) {
	globalManager.cacheEvictions.WithLabelValues(tier).Inc()
}

// RecordExpired adds to the TTL-expiry counter.
func RecordExpired(count int) {
	globalManager.cacheExpired.Add(float64(count))
}

// RecordCacheDegraded increments the absorbed-inconsistency counter.
func RecordCacheDegraded() {
	globalManager.cacheDegraded.Inc()
}

// UpdateCacheSize sets the current entry count for a tier.
func UpdateCacheSize(tier string, count int) {
	globalManager.cacheSize.WithLabelValues(tier).Set(float64(count))
}

// RecordLookupLatency records lookup latency in milliseconds for a tier.
func RecordLookupLatency(tier string, latencyMs float64) {
	globalManager.lookupLatency.WithLabelValues(tier).Observe(latencyMs)
}

// =============================================================================
// Ingestion Metrics Functions
// =============================================================================

// RecordBatchIngested increments the ingested-batch counter.
func RecordBatchIngested() {
	globalManager.batchesIngested.Inc()
}

// RecordBatchDegraded increments the degraded-batch counter.
func RecordBatchDegraded() {
	globalManager.batchesDegraded.Inc()
}

// RecordBatchFailed increments the failed-batch counter.
func RecordBatchFailed() {
	globalManager.batchesFailed.Inc()
}

// RecordRecordsIngested adds to the persisted-record counter.
func RecordRecordsIngested(count int) {
	globalManager.recordsIngested.Add(float64(count))
}

// RecordRecordsRejected adds to the rejected-record counter.
func RecordRecordsRejected(count int) {
	globalManager.recordsRejected.Add(float64(count))
}

// UpdateQualityScores sets the most recent batch scores.
func UpdateQualityScores(completeness, accuracy float64) {
	globalManager.completenessScore.Set(completeness)
	globalManager.accuracyScore.Set(accuracy)
}

// RecordIngestLatency records batch ingestion latency in milliseconds.
func RecordIngestLatency(latencyMs float64) {
	globalManager.ingestLatency.Observe(latencyMs)
}

// =============================================================================
// Feature Metrics Functions
// =============================================================================

// RecordRecompute increments the recomputation counter.
func RecordRecompute() {
	globalManager.recomputes.Inc()
}

// RecordRecomputeTimeout increments the recompute-timeout counter.
func RecordRecomputeTimeout() {
	globalManager.recomputeTimeouts.Inc()
}

// RecordRecomputeLatency records recomputation latency in milliseconds.
func RecordRecomputeLatency(latencyMs float64) {
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordStaleRejection increments the stale-write counter.
func RecordStaleRejection() {
	globalManager.staleRejections.Inc()
}

// =============================================================================
// Store Metrics Functions
// =============================================================================

// RecordStoreOp increments the store operation counter for a kind.
func RecordStoreOp(op string) {
	globalManager.storeOps.WithLabelValues(op).Inc()
}

// RecordStoreError increments the store error counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// RecordStoreOpLatency records store operation latency in milliseconds.
func RecordStoreOpLatency(op string, latencyMs float64) {
	globalManager.storeOpLatency.WithLabelValues(op).Observe(latencyMs)
}

// =============================================================================
// Retention Metrics Functions
// =============================================================================

// RecordSweep records the outcome of one retention sweep.
func RecordSweep(entities, records int) {
	globalManager.sweepsRun.Inc()
	globalManager.entitiesSwept.Add(float64(entities))
	globalManager.recordsSwept.Add(float64(records))
}
