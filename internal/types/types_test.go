package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTier_Ordering(t *testing.T) {
	if TierWarm.Above() != TierHot {
		t.Error("warm should promote to hot")
	}
	if TierCold.Above() != TierWarm {
		t.Error("cold should promote to warm")
	}
	if TierHot.Below() != TierWarm {
		t.Error("hot should demote to warm")
	}
	if TierWarm.Below() != TierCold {
		t.Error("warm should demote to cold")
	}
	if TierCold.Cached() {
		t.Error("cold is not a cached tier")
	}
	if !TierHot.Cached() || !TierWarm.Cached() {
		t.Error("hot and warm are cached tiers")
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected Tier
		hasError bool
	}{
		{"hot", TierHot, false},
		{"warm", TierWarm, false},
		{"cold", TierCold, false},
		{"lukewarm", TierHot, true},
		{"", TierHot, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tier, err := ParseTier(tt.input)
			if tt.hasError {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tier != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, tier)
			}
		})
	}
}

func TestCacheKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      CacheKey
		expected string
	}{
		{
			name:     "entity key",
			key:      EntityKey(EntityEvent, "401585601"),
			expected: "entity/event/401585601",
		},
		{
			name:     "participant key",
			key:      EntityKey(EntityParticipant, "13"),
			expected: "entity/participant/13",
		},
		{
			name:     "feature key",
			key:      FeatureKey(EntityEvent, "401585601", 2),
			expected: "feature/event/401585601/v2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestEntityRecord_Float(t *testing.T) {
	rec := &EntityRecord{
		Payload: map[string]any{
			"float":  98.5,
			"int":    42,
			"number": json.Number("7"),
			"string": "3.25",
			"bad":    "not a number",
			"nil":    nil,
			"bool":   true,
		},
	}

	tests := []struct {
		field    string
		expected float64
		ok       bool
	}{
		{"float", 98.5, true},
		{"int", 42, true},
		{"number", 7, true},
		{"string", 3.25, true},
		{"bad", 0, false},
		{"nil", 0, false},
		{"bool", 0, false},
		{"missing", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			v, ok := rec.Float(tt.field)
			if ok != tt.ok {
				t.Fatalf("ok: expected %v, got %v", tt.ok, ok)
			}
			if ok && v != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, v)
			}
		})
	}
}

func TestEntityRecord_Key(t *testing.T) {
	rec := &EntityRecord{EntityType: EntityResult, EntityID: "r1"}
	if rec.Key().String() != "entity/result/r1" {
		t.Errorf("unexpected key %q", rec.Key().String())
	}
}

func TestFeatureVector_Get(t *testing.T) {
	fv := &FeatureVector{
		Names:  []string{"score_difference", "total_score"},
		Values: []float64{-3, 201},
	}

	if v, ok := fv.Get("total_score"); !ok || v != 201 {
		t.Errorf("total_score: got %v, %v", v, ok)
	}
	if _, ok := fv.Get("missing"); ok {
		t.Error("missing feature should not be found")
	}
	if fv.Len() != 2 {
		t.Errorf("expected len 2, got %d", fv.Len())
	}
}

func TestQualityReport_Degraded(t *testing.T) {
	accepted := &QualityReport{Accepted: true}
	if accepted.Degraded() {
		t.Error("accepted report must not be degraded")
	}
	degraded := &QualityReport{Accepted: false}
	if !degraded.Degraded() {
		t.Error("rejected report must be degraded")
	}
}

func TestQualityReport_MeetsThreshold(t *testing.T) {
	tests := []struct {
		name         string
		completeness float64
		accuracy     float64
		threshold    float64
		expected     bool
	}{
		{"both above", 0.96, 0.99, 0.95, true},
		{"at threshold", 0.95, 0.95, 0.95, true},
		{"completeness below", 0.94, 1.0, 0.95, false},
		{"accuracy below", 1.0, 0.90, 0.95, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &QualityReport{
				CompletenessScore: tt.completeness,
				AccuracyScore:     tt.accuracy,
				GeneratedAt:       time.Now(),
			}
			if got := r.MeetsThreshold(tt.threshold); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
