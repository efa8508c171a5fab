package validator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sportsedge/featurestore/internal/types"
)

// knownStatuses is the vocabulary expected from upstream feeds.
var knownStatuses = map[string]bool{
	"STATUS_SCHEDULED":   true,
	"STATUS_IN_PROGRESS": true,
	"STATUS_HALFTIME":    true,
	"STATUS_FINAL":       true,
	"STATUS_POSTPONED":   true,
	"STATUS_CANCELED":    true,
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "required-fields",
			Severity: Hard,
			Enabled:  true,
			Check:    checkRequiredFields,
		},
		{
			Name:     "entity-id-form",
			Severity: Hard,
			Enabled:  true,
			Check:    checkEntityIDForm,
		},
		{
			Name:     "feed-shape",
			Severity: Hard,
			Enabled:  true,
			Check:    checkFeedShape,
		},
		{
			Name:     "score-range",
			Severity: Hard,
			Enabled:  true,
			Check:    checkScoreRange,
		},
		{
			Name:     "competitors-distinct",
			Severity: Hard,
			Enabled:  true,
			Check:    checkCompetitorsDistinct,
		},
		{
			Name:     "result-after-start",
			Severity: Hard,
			Enabled:  true,
			Check:    checkResultAfterStart,
		},
		{
			Name:     "odds-range",
			Severity: Soft,
			Weight:   1.0,
			Enabled:  true,
			Check:    checkOddsRange,
		},
		{
			Name:     "implied-probability",
			Severity: Soft,
			Weight:   1.0,
			Enabled:  true,
			Check:    checkImpliedProbability,
		},
		{
			Name:     "status-vocabulary",
			Severity: Soft,
			Weight:   1.0,
			Enabled:  true,
			Check:    checkStatusVocabulary,
		},
		{
			Name:     "venue-presence",
			Severity: Soft,
			Weight:   0.5,
			Enabled:  true,
			Check:    checkVenuePresence,
		},
	}
}

// checkRequiredFields rejects records missing the minimum identity
// and timing fields.
func checkRequiredFields(r *types.EntityRecord) error {
	if r.EntityID == "" {
		return fmt.Errorf("entity id is empty")
	}
	if r.Payload == nil {
		return fmt.Errorf("payload is nil")
	}
	if r.SourceTimestamp.IsZero() {
		return fmt.Errorf("source timestamp is zero")
	}
	return nil
}

// checkEntityIDForm rejects IDs with control characters, path
// separators, or excessive length.
func checkEntityIDForm(r *types.EntityRecord) error {
	if len(r.EntityID) > 255 {
		return fmt.Errorf("entity id too long: %d characters", len(r.EntityID))
	}
	for i, c := range r.EntityID {
		if c < 32 || c == 127 {
			return fmt.Errorf("control character at position %d", i)
		}
		if c == '/' || c == '\\' {
			return fmt.Errorf("path separator at position %d", i)
		}
		if unicode.IsSpace(c) {
			return fmt.Errorf("whitespace at position %d", i)
		}
	}
	return nil
}

// checkFeedShape rejects records the normalizer marked as
// structurally unusable (missing event id, fewer than two
// competitors, and similar feed defects).
func checkFeedShape(r *types.EntityRecord) error {
	if reason, ok := r.Str("invalid_reason"); ok {
		return fmt.Errorf("malformed feed payload: %s", reason)
	}
	return nil
}

// checkScoreRange rejects negative scores.
func checkScoreRange(r *types.EntityRecord) error {
	for _, field := range []string{"home_team_score", "away_team_score"} {
		if v, ok := r.Float(field); ok && v < 0 {
			return fmt.Errorf("%s is negative: %v", field, v)
		}
	}
	return nil
}

// checkCompetitorsDistinct rejects events whose home and away sides
// are the same competitor.
func checkCompetitorsDistinct(r *types.EntityRecord) error {
	if r.EntityType != types.EntityEvent {
		return nil
	}
	home, hok := r.Str("home_team")
	away, aok := r.Str("away_team")
	if hok && aok && strings.EqualFold(home, away) {
		return fmt.Errorf("home and away are both %q", home)
	}
	return nil
}

// checkResultAfterStart rejects results timestamped before their
// event's start.
func checkResultAfterStart(r *types.EntityRecord) error {
	if r.EntityType != types.EntityResult {
		return nil
	}
	start, ok := r.Float("event_start_ts")
	if !ok {
		return nil
	}
	if float64(r.SourceTimestamp.Unix()) < start {
		return fmt.Errorf("result timestamp %d precedes event start %v",
			r.SourceTimestamp.Unix(), start)
	}
	return nil
}

// checkOddsRange flags decimal odds at or below 1.0, which cannot
// represent a priced outcome.
func checkOddsRange(r *types.EntityRecord) error {
	for _, field := range []string{"home_odds", "away_odds", "draw_odds"} {
		if v, ok := r.Float(field); ok && v <= 1.0 {
			return fmt.Errorf("%s out of range: %v", field, v)
		}
	}
	return nil
}

// checkImpliedProbability flags probabilities outside [0,1].
func checkImpliedProbability(r *types.EntityRecord) error {
	for _, field := range []string{"home_implied_probability", "away_implied_probability"} {
		if v, ok := r.Float(field); ok && (v < 0 || v > 1) {
			return fmt.Errorf("%s out of range: %v", field, v)
		}
	}
	return nil
}

// checkStatusVocabulary flags statuses outside the known vocabulary.
func checkStatusVocabulary(r *types.EntityRecord) error {
	status, ok := r.Str("status")
	if !ok || status == "" {
		return nil
	}
	if !knownStatuses[status] {
		return fmt.Errorf("unknown status %q", status)
	}
	return nil
}

// checkVenuePresence flags events with no venue information.
func checkVenuePresence(r *types.EntityRecord) error {
	if r.EntityType != types.EntityEvent {
		return nil
	}
	if v, ok := r.Str("venue"); !ok || v == "" {
		return fmt.Errorf("venue missing")
	}
	return nil
}
