package cache

import (
	"sync"
	"time"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

const latencyRelativeAccuracy = 0.01

// latencyRecorder keeps a DDSketch of lookup latency per tier so
// quantiles stay cheap to read while lookups stay cheap to record.
type latencyRecorder struct {
	mu       sync.Mutex
	sketches map[types.Tier]*ddsketch.DDSketch
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{
		sketches: make(map[types.Tier]*ddsketch.DDSketch),
	}
}

func (r *latencyRecorder) record(tier types.Tier, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0

	r.mu.Lock()
	sketch, ok := r.sketches[tier]
	if !ok {
		var err error
		sketch, err = ddsketch.NewDefaultDDSketch(latencyRelativeAccuracy)
		if err != nil {
			r.mu.Unlock()
			return
		}
		r.sketches[tier] = sketch
	}
	_ = sketch.Add(ms)
	r.mu.Unlock()

	metrics.RecordLookupLatency(tier.String(), ms)
}

func (r *latencyRecorder) quantile(tier types.Tier, q float64) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sketch, ok := r.sketches[tier]
	if !ok {
		return 0, false
	}
	v, err := sketch.GetValueAtQuantile(q)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LookupLatencyQuantile returns the q-th quantile of lookup latency in
// milliseconds for a tier, and false if no lookups hit that tier yet.
func (m *Manager) LookupLatencyQuantile(tier types.Tier, q float64) (float64, bool) {
	return m.latency.quantile(tier, q)
}
