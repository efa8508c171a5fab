package features

import (
	"testing"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/types"
)

func eventRecord() *types.EntityRecord {
	return &types.EntityRecord{
		EntityType: types.EntityEvent,
		EntityID:   "401585601",
		Version:    3,
		Payload: map[string]any{
			"home_team_score": 110.0,
			"away_team_score": 104.0,
			"status":          "STATUS_FINAL",
			"home_odds":       1.5,
			"away_odds":       2.5,
			"draw_odds":       10.0,
		},
		SourceTimestamp: time.Now(),
	}
}

func TestCompute_V1(t *testing.T) {
	fv, err := Compute(eventRecord(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fv.FeatureSetVersion != 1 {
		t.Errorf("set version: got %d", fv.FeatureSetVersion)
	}
	if fv.SourceRecordVersion != 3 {
		t.Errorf("source version: got %d", fv.SourceRecordVersion)
	}
	if len(fv.Names) != len(fv.Values) {
		t.Fatal("names and values must be parallel")
	}

	tests := []struct {
		feature  string
		expected float64
	}{
		{"score_difference", 6},
		{"total_score", 214},
		{"home_team_winning", 1},
		{"away_team_winning", 0},
		{"tie_game", 0},
		{"game_in_progress", 0},
		{"game_completed", 1},
	}
	for _, tt := range tests {
		t.Run(tt.feature, func(t *testing.T) {
			v, ok := fv.Get(tt.feature)
			if !ok {
				t.Fatalf("feature %s missing", tt.feature)
			}
			if v != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, v)
			}
		})
	}
}

func TestCompute_V2MarketFeatures(t *testing.T) {
	fv, err := Compute(eventRecord(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	home, _ := fv.Get("home_implied_probability")
	away, _ := fv.Get("away_implied_probability")
	if diff := home - 1.0/1.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("home implied probability: got %v", home)
	}
	if diff := away - 1.0/2.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("away implied probability: got %v", away)
	}

	confHome, _ := fv.Get("market_confidence_home")
	confAway, _ := fv.Get("market_confidence_away")
	if diff := confHome + confAway - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("market confidences should sum to 1, got %v", confHome+confAway)
	}

	if v, _ := fv.Get("home_is_favorite"); v != 1 {
		t.Error("shorter home odds should mark home as favorite")
	}
	if v, _ := fv.Get("away_is_favorite"); v != 0 {
		t.Error("away should not be favorite")
	}
}

// Missing inputs yield zero-valued features, never an error.
func TestCompute_MissingInputs(t *testing.T) {
	rec := &types.EntityRecord{
		EntityType: types.EntityEvent,
		EntityID:   "upcoming",
		Version:    1,
		Payload: map[string]any{
			"status": "STATUS_SCHEDULED",
		},
	}

	fv, err := Compute(rec, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, name := range fv.Names {
		if name == "game_in_progress" || name == "game_completed" {
			continue
		}
		if fv.Values[i] != 0 {
			t.Errorf("%s: expected zero without inputs, got %v", name, fv.Values[i])
		}
	}
}

func TestCompute_UnknownVersion(t *testing.T) {
	_, err := Compute(eventRecord(), 99)
	if !errors.Is(err, errors.ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
}

func TestCompute_TieGame(t *testing.T) {
	rec := eventRecord()
	rec.Payload["home_team_score"] = 100.0
	rec.Payload["away_team_score"] = 100.0

	fv, err := Compute(rec, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := fv.Get("tie_game"); v != 1 {
		t.Error("equal scores should flag tie_game")
	}
	if v, _ := fv.Get("home_team_winning"); v != 0 {
		t.Error("tie should not mark home winning")
	}
}

func TestNames_StableOrder(t *testing.T) {
	a, err := Names(1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Names(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != len(b) {
		t.Fatal("lengths differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order changed at %d: %s vs %s", i, a[i], b[i])
		}
	}
}

func TestVersions(t *testing.T) {
	vs := Versions()
	if len(vs) < 2 {
		t.Fatalf("expected at least 2 versions, got %v", vs)
	}
	for i := 1; i < len(vs); i++ {
		if vs[i] <= vs[i-1] {
			t.Fatalf("versions not ascending: %v", vs)
		}
	}
}
