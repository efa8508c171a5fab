// Package validator scores batches of incoming entity records before
// they are trusted by the rest of the pipeline.
//
// Each record is checked against a set of named rules. A record
// failing any hard rule is rejected and excluded from persistence; a
// record failing only soft rules is accepted but lowers the batch
// accuracy score. Completeness is accepted/total; accuracy is the
// weighted soft-rule pass rate among accepted records.
package validator

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sportsedge/featurestore/internal/errors"
	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/types"
)

// Severity classifies a rule as rejecting or scoring.
type Severity int

const (
	// Hard rules reject the record on failure.
	Hard Severity = iota

	// Soft rules accept the record but lower the accuracy score.
	Soft
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case Hard:
		return "hard"
	case Soft:
		return "soft"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Rule is a named check applied to every record of a batch.
type Rule struct {
	Name     string
	Severity Severity

	// Weight scales a soft rule's contribution to the accuracy
	// score. Ignored for hard rules.
	Weight float64

	// Enabled rules participate in validation.
	Enabled bool

	// Check returns nil when the record passes. A nil return for
	// records the rule does not apply to counts as a pass.
	Check func(r *types.EntityRecord) error
}

// Result bundles the quality report with the records that survived
// hard-rule filtering, in input order.
type Result struct {
	Report   *types.QualityReport
	Accepted []types.EntityRecord
}

// Validator applies a rule set to record batches. It is stateless
// between calls and safe for concurrent use.
type Validator struct {
	rules     []Rule
	threshold float64
}

// New creates a validator with the default rule set and the given
// acceptance threshold.
func New(threshold float64) *Validator {
	return &Validator{
		rules:     DefaultRules(),
		threshold: threshold,
	}
}

// NewWithRules creates a validator with an explicit rule set.
func NewWithRules(threshold float64, rules []Rule) *Validator {
	return &Validator{
		rules:     rules,
		threshold: threshold,
	}
}

// Rules returns the configured rule set.
func (v *Validator) Rules() []Rule {
	return v.rules
}

// Validate scores a batch. It returns ErrEmptyBatch for empty input.
// Rule evaluation errors on a single record are contained to that
// record and counted as hard failures; they never abort the batch.
func (v *Validator) Validate(records []types.EntityRecord) (*Result, error) {
	if len(records) == 0 {
		return nil, errors.ErrEmptyBatch
	}

	report := &types.QualityReport{
		BatchID:      uuid.NewString(),
		TotalRecords: len(records),
		RuleFailures: make(map[string]int),
		GeneratedAt:  time.Now().UTC(),
	}

	var accepted []types.EntityRecord
	var weightPassed, weightTotal float64

	for i := range records {
		rec := &records[i]

		rejected := false
		var recPassed, recTotal float64

		for _, rule := range v.rules {
			if !rule.Enabled {
				continue
			}

			err := v.eval(rule, rec)

			switch rule.Severity {
			case Hard:
				if err != nil {
					report.RuleFailures[rule.Name]++
					rejected = true
				}
			case Soft:
				recTotal += rule.Weight
				if err != nil {
					report.RuleFailures[rule.Name]++
				} else {
					recPassed += rule.Weight
				}
			}
		}

		if rejected {
			report.RejectedRecordIDs = append(report.RejectedRecordIDs, rec.EntityID)
			continue
		}

		accepted = append(accepted, records[i])
		weightPassed += recPassed
		weightTotal += recTotal
	}

	report.ValidRecords = len(accepted)
	report.CompletenessScore = float64(len(accepted)) / float64(len(records))

	switch {
	case len(accepted) == 0:
		report.AccuracyScore = 0
	case weightTotal == 0:
		report.AccuracyScore = 1
	default:
		report.AccuracyScore = weightPassed / weightTotal
	}

	report.Accepted = report.MeetsThreshold(v.threshold)

	return &Result{Report: report, Accepted: accepted}, nil
}

// eval runs a single rule, containing panics. A panicking rule fails
// closed: the record is treated as failing that rule.
func (v *Validator) eval(rule Rule, rec *types.EntityRecord) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Component("validator").Warn("rule panicked",
				"rule", rule.Name, "entity", rec.EntityID, "panic", r)
			err = fmt.Errorf("rule %s panicked: %v: %w", rule.Name, r, errors.ErrInvalidRecord)
		}
	}()
	return rule.Check(rec)
}
