package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// EntityType classifies a normalized sports fact.
type EntityType int

const (
	// EntityEvent is a scheduled or completed game/race.
	EntityEvent EntityType = iota

	// EntityParticipant is a team, competitor, or runner.
	EntityParticipant

	// EntityResult is a final or in-progress outcome.
	EntityResult
)

// String returns the string representation of the entity type.
func (t EntityType) String() string {
	switch t {
	case EntityEvent:
		return "event"
	case EntityParticipant:
		return "participant"
	case EntityResult:
		return "result"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// ParseEntityType parses a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "event":
		return EntityEvent, nil
	case "participant":
		return EntityParticipant, nil
	case "result":
		return EntityResult, nil
	default:
		return EntityEvent, fmt.Errorf("unknown entity type: %s", s)
	}
}

// AllEntityTypes returns all entity types in order.
func AllEntityTypes() []EntityType {
	return []EntityType{EntityEvent, EntityParticipant, EntityResult}
}

// EntityRecord is a normalized sports/racing fact. EntityID is unique
// within EntityType and immutable once persisted; Version is assigned
// by the store and is strictly increasing per (EntityType, EntityID).
type EntityRecord struct {
	EntityType EntityType
	EntityID   string

	// Version is 0 until the store assigns one on Put.
	Version int

	// Payload holds the typed fields of the fact (scores, odds,
	// status, competitor names, ...).
	Payload map[string]any

	// SourceTimestamp is the instant the fact occurred upstream.
	SourceTimestamp time.Time

	// IngestedAt is when the record entered this system.
	IngestedAt time.Time

	// BatchID links the record to the quality report of its batch.
	BatchID string
}

// Key returns the cache key for this record.
func (r *EntityRecord) Key() CacheKey {
	return EntityKey(r.EntityType, r.EntityID)
}

// Float reads a numeric payload field. It accepts the numeric shapes
// that survive JSON round-trips (float64, int, int64, json.Number)
// plus numeric strings from loosely-typed feeds.
func (r *EntityRecord) Float(field string) (float64, bool) {
	v, ok := r.Payload[field]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Str reads a string payload field.
func (r *EntityRecord) Str(field string) (string, bool) {
	v, ok := r.Payload[field]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether a payload field is present and non-nil.
func (r *EntityRecord) Has(field string) bool {
	v, ok := r.Payload[field]
	return ok && v != nil
}

// EstimateSize returns a rough in-memory size in bytes, used for
// cache eviction tie-breaks. It does not need to be exact.
func (r *EntityRecord) EstimateSize() int {
	size := 64 + len(r.EntityID)
	for k, v := range r.Payload {
		size += len(k) + 16
		if s, ok := v.(string); ok {
			size += len(s)
		}
	}
	return size
}
