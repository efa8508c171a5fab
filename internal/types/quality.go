package types

import "time"

// QualityReport scores one ingested batch. It is immutable after
// creation; both scores must exceed the configured threshold for the
// batch to be marked accepted.
type QualityReport struct {
	BatchID      string
	TotalRecords int
	ValidRecords int

	// CompletenessScore is accepted/total, in [0,1].
	CompletenessScore float64

	// AccuracyScore is the weighted soft-rule pass rate among
	// accepted records, in [0,1].
	AccuracyScore float64

	RejectedRecordIDs []string

	// RuleFailures tallies failures per rule name across the batch.
	RuleFailures map[string]int

	// Accepted is true when both scores met the quality threshold.
	Accepted bool

	GeneratedAt time.Time
}

// Degraded reports whether the batch fell below the quality
// threshold. Degraded batches are persisted but never auto-promoted
// into the hot tier.
func (r *QualityReport) Degraded() bool {
	return !r.Accepted
}

// MeetsThreshold reports whether both scores exceed the threshold.
func (r *QualityReport) MeetsThreshold(threshold float64) bool {
	return r.CompletenessScore >= threshold && r.AccuracyScore >= threshold
}

// RawInput is an opaque, feed-specific structure delivered by the
// ingestion scheduler. The coordinator's normalization step
// translates it into entity records.
type RawInput struct {
	// Feed identifies the upstream source (e.g. "espn", "bet365").
	Feed string `json:"feed"`

	// Sport and League scope the payload (e.g. "basketball"/"nba").
	Sport  string `json:"sport"`
	League string `json:"league"`

	// Data is the feed-specific payload.
	Data map[string]any `json:"data"`
}
