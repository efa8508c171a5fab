// Package features derives ML-ready feature vectors from entity
// records. Feature definitions are versioned: a feature set version
// fixes the ordered list of feature names, so vectors computed under
// the same version are always comparable column by column.
package features

import (
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/types"
)

// featureFn derives one feature value from a record. A false ok means
// the record lacks the inputs and the feature defaults to zero.
type featureFn func(r *types.EntityRecord) (float64, bool)

// featureDef is one named feature within a set.
type featureDef struct {
	name string
	fn   featureFn
}

// featureSets maps feature set version to its ordered definitions.
// Versions are append-only: changing the meaning or order of an
// existing version would silently corrupt stored vectors.
var featureSets = map[int][]featureDef{
	1: {
		{"score_difference", scoreDifference},
		{"total_score", totalScore},
		{"home_team_winning", homeTeamWinning},
		{"away_team_winning", awayTeamWinning},
		{"tie_game", tieGame},
		{"game_in_progress", statusIs("STATUS_IN_PROGRESS")},
		{"game_completed", statusIs("STATUS_FINAL")},
	},
	2: {
		{"score_difference", scoreDifference},
		{"total_score", totalScore},
		{"home_team_winning", homeTeamWinning},
		{"away_team_winning", awayTeamWinning},
		{"tie_game", tieGame},
		{"game_in_progress", statusIs("STATUS_IN_PROGRESS")},
		{"game_completed", statusIs("STATUS_FINAL")},
		{"home_implied_probability", impliedProbability("home_odds")},
		{"away_implied_probability", impliedProbability("away_odds")},
		{"draw_implied_probability", impliedProbability("draw_odds")},
		{"market_confidence_home", marketConfidenceHome},
		{"market_confidence_away", marketConfidenceAway},
		{"market_overround", marketOverround},
		{"home_is_favorite", favorite("home_odds", "away_odds")},
		{"away_is_favorite", favorite("away_odds", "home_odds")},
	},
}

// Versions returns the known feature set versions in ascending order.
func Versions() []int {
	versions := make([]int, 0, len(featureSets))
	for v := range featureSets {
		versions = append(versions, v)
	}
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j] < versions[j-1]; j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
	return versions
}

// Names returns the ordered feature names of a set version.
func Names(setVersion int) ([]string, error) {
	defs, ok := featureSets[setVersion]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidVersion, "feature set v%d", setVersion)
	}
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.name
	}
	return names, nil
}

// Compute derives the feature vector for a record under a feature set
// version. Missing inputs yield zero-valued features rather than an
// error; ingestion quality rules are the place where bad inputs are
// rejected.
func Compute(record *types.EntityRecord, setVersion int) (*types.FeatureVector, error) {
	defs, ok := featureSets[setVersion]
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidVersion, "feature set v%d", setVersion)
	}

	fv := &types.FeatureVector{
		EntityType:          record.EntityType,
		EntityID:            record.EntityID,
		FeatureSetVersion:   setVersion,
		SourceRecordVersion: record.Version,
		Names:               make([]string, len(defs)),
		Values:              make([]float64, len(defs)),
		ComputedAt:          time.Now().UTC(),
	}
	for i, d := range defs {
		fv.Names[i] = d.name
		if v, ok := d.fn(record); ok {
			fv.Values[i] = v
		}
	}
	return fv, nil
}

// =============================================================================
// Feature functions
// =============================================================================

func scores(r *types.EntityRecord) (home, away float64, ok bool) {
	home, hok := r.Float("home_team_score")
	away, aok := r.Float("away_team_score")
	return home, away, hok && aok
}

func scoreDifference(r *types.EntityRecord) (float64, bool) {
	home, away, ok := scores(r)
	return home - away, ok
}

func totalScore(r *types.EntityRecord) (float64, bool) {
	home, away, ok := scores(r)
	return home + away, ok
}

func homeTeamWinning(r *types.EntityRecord) (float64, bool) {
	home, away, ok := scores(r)
	return boolFeature(home > away), ok
}

func awayTeamWinning(r *types.EntityRecord) (float64, bool) {
	home, away, ok := scores(r)
	return boolFeature(away > home), ok
}

func tieGame(r *types.EntityRecord) (float64, bool) {
	home, away, ok := scores(r)
	return boolFeature(home == away), ok
}

func statusIs(want string) featureFn {
	return func(r *types.EntityRecord) (float64, bool) {
		status, ok := r.Str("status")
		if !ok {
			return 0, false
		}
		return boolFeature(status == want), true
	}
}

func impliedProbability(oddsField string) featureFn {
	return func(r *types.EntityRecord) (float64, bool) {
		odds, ok := r.Float(oddsField)
		if !ok || odds <= 0 {
			return 0, false
		}
		return 1 / odds, true
	}
}

func impliedPair(r *types.EntityRecord) (home, away float64, ok bool) {
	homeOdds, hok := r.Float("home_odds")
	awayOdds, aok := r.Float("away_odds")
	if !hok || !aok || homeOdds <= 0 || awayOdds <= 0 {
		return 0, 0, false
	}
	return 1 / homeOdds, 1 / awayOdds, true
}

func marketConfidenceHome(r *types.EntityRecord) (float64, bool) {
	home, away, ok := impliedPair(r)
	if !ok || home+away == 0 {
		return 0, false
	}
	return home / (home + away), true
}

func marketConfidenceAway(r *types.EntityRecord) (float64, bool) {
	home, away, ok := impliedPair(r)
	if !ok || home+away == 0 {
		return 0, false
	}
	return away / (home + away), true
}

// marketOverround is the bookmaker margin: the implied probabilities
// of a fair book sum to 1, anything above is the vig.
func marketOverround(r *types.EntityRecord) (float64, bool) {
	home, away, ok := impliedPair(r)
	if !ok {
		return 0, false
	}
	total := home + away
	if draw, dok := r.Float("draw_odds"); dok && draw > 0 {
		total += 1 / draw
	}
	return total, true
}

func favorite(oddsField, otherField string) featureFn {
	return func(r *types.EntityRecord) (float64, bool) {
		own, ook := r.Float(oddsField)
		other, tok := r.Float(otherField)
		if !ook || !tok {
			return 0, false
		}
		return boolFeature(own < other), true
	}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
