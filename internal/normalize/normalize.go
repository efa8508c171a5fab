// Package normalize translates raw, feed-specific payloads into
// entity records. Structurally unusable events are not dropped here;
// they are emitted with an invalid_reason marker so the validator can
// reject them and the batch arithmetic still counts them.
package normalize

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sportsedge/featurestore/internal/logging"
	"github.com/sportsedge/featurestore/internal/types"
)

// Batch converts one raw input into entity records tagged with a fresh
// batch ID. Returns the records and the batch ID.
func Batch(input types.RawInput, now time.Time) ([]types.EntityRecord, string) {
	batchID := uuid.NewString()
	records := Records(input, batchID, now)
	return records, batchID
}

// Records converts one raw input into entity records tagged with the
// given batch ID.
func Records(input types.RawInput, batchID string, now time.Time) []types.EntityRecord {
	var records []types.EntityRecord

	switch input.Feed {
	case "espn":
		records = espnRecords(input, batchID, now)
	default:
		records = flatRecords(input, batchID, now)
	}

	logging.Component("normalize").Debug("normalized batch",
		"feed", input.Feed,
		"sport", input.Sport,
		"batch_id", batchID,
		"records", len(records))

	return records
}

// =============================================================================
// ESPN scoreboard shape
// =============================================================================

// espnRecords walks an ESPN scoreboard payload: events, each with one
// competition holding two competitors marked homeAway, a status block,
// and an ISO-8601 date.
func espnRecords(input types.RawInput, batchID string, now time.Time) []types.EntityRecord {
	events, _ := input.Data["events"].([]any)
	records := make([]types.EntityRecord, 0, len(events))

	for i, raw := range events {
		event, ok := raw.(map[string]any)
		if !ok {
			records = append(records, invalidRecord(fmt.Sprintf("malformed-%d", i),
				"event is not an object", input, batchID, now))
			continue
		}
		records = append(records, espnEvent(event, i, input, batchID, now)...)
	}

	return records
}

func espnEvent(event map[string]any, index int, input types.RawInput, batchID string, now time.Time) []types.EntityRecord {
	eventID := stringField(event, "id")
	if eventID == "" {
		return []types.EntityRecord{invalidRecord(fmt.Sprintf("malformed-%d", index),
			"event id missing", input, batchID, now)}
	}

	competitions, _ := event["competitions"].([]any)
	if len(competitions) == 0 {
		return []types.EntityRecord{invalidRecord(eventID, "no competitions", input, batchID, now)}
	}
	competition, ok := competitions[0].(map[string]any)
	if !ok {
		return []types.EntityRecord{invalidRecord(eventID, "competition is not an object", input, batchID, now)}
	}

	competitors, _ := competition["competitors"].([]any)
	if len(competitors) < 2 {
		return []types.EntityRecord{invalidRecord(eventID, "fewer than two competitors", input, batchID, now)}
	}

	var home, away map[string]any
	for _, c := range competitors {
		cm, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if stringField(cm, "homeAway") == "home" {
			home = cm
		} else {
			away = cm
		}
	}
	if home == nil || away == nil {
		return []types.EntityRecord{invalidRecord(eventID, "home or away side missing", input, batchID, now)}
	}

	sourceTS := eventTime(event, now)
	status := statusName(competition)

	payload := map[string]any{
		"sport":       input.Sport,
		"league":      input.League,
		"data_source": input.Feed,
		"home_team":   teamName(home),
		"away_team":   teamName(away),
		"status":      status,
	}
	if v := stringField(competition, "venue"); v != "" {
		payload["venue"] = v
	} else if vm, ok := competition["venue"].(map[string]any); ok {
		payload["venue"] = stringField(vm, "fullName")
	}
	if s, ok := scoreField(home); ok {
		payload["home_team_score"] = s
	}
	if s, ok := scoreField(away); ok {
		payload["away_team_score"] = s
	}
	payload["event_start_ts"] = float64(sourceTS.Unix())

	records := []types.EntityRecord{{
		EntityType:      types.EntityEvent,
		EntityID:        eventID,
		Payload:         payload,
		SourceTimestamp: sourceTS,
		IngestedAt:      now,
		BatchID:         batchID,
	}}

	records = append(records, participantRecords(home, away, input, batchID, sourceTS, now)...)

	// A final or in-progress competition also yields a result record
	// so outcome history survives event payload churn.
	if status == "STATUS_FINAL" || status == "STATUS_IN_PROGRESS" {
		resultPayload := map[string]any{
			"sport":          input.Sport,
			"league":         input.League,
			"data_source":    input.Feed,
			"event_id":       eventID,
			"status":         status,
			"event_start_ts": float64(sourceTS.Unix()),
		}
		if s, ok := scoreField(home); ok {
			resultPayload["home_team_score"] = s
		}
		if s, ok := scoreField(away); ok {
			resultPayload["away_team_score"] = s
		}
		records = append(records, types.EntityRecord{
			EntityType:      types.EntityResult,
			EntityID:        eventID,
			Payload:         resultPayload,
			SourceTimestamp: now,
			IngestedAt:      now,
			BatchID:         batchID,
		})
	}

	return records
}

func participantRecords(home, away map[string]any, input types.RawInput, batchID string, sourceTS, now time.Time) []types.EntityRecord {
	var records []types.EntityRecord
	for _, side := range []map[string]any{home, away} {
		id := stringField(side, "id")
		name := teamName(side)
		if id == "" || name == "" {
			continue
		}
		records = append(records, types.EntityRecord{
			EntityType: types.EntityParticipant,
			EntityID:   id,
			Payload: map[string]any{
				"sport":       input.Sport,
				"league":      input.League,
				"data_source": input.Feed,
				"name":        name,
				"abbrev":      teamAbbrev(side),
			},
			SourceTimestamp: sourceTS,
			IngestedAt:      now,
			BatchID:         batchID,
		})
	}
	return records
}

// =============================================================================
// Flat shape
// =============================================================================

// flatRecords handles feeds that deliver pre-flattened records under a
// "records" list: each a map with entity_type, entity_id, source_ts,
// and the remaining keys as payload.
func flatRecords(input types.RawInput, batchID string, now time.Time) []types.EntityRecord {
	items, _ := input.Data["records"].([]any)
	records := make([]types.EntityRecord, 0, len(items))

	for i, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			records = append(records, invalidRecord(fmt.Sprintf("malformed-%d", i),
				"record is not an object", input, batchID, now))
			continue
		}

		entityType, err := types.ParseEntityType(stringField(item, "entity_type"))
		if err != nil {
			records = append(records, invalidRecord(stringField(item, "entity_id"),
				"unknown entity type", input, batchID, now))
			continue
		}

		sourceTS := now
		if raw, ok := item["source_ts"].(string); ok {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				sourceTS = t.UTC()
			}
		}

		payload := make(map[string]any, len(item))
		for k, v := range item {
			if k == "entity_type" || k == "entity_id" || k == "source_ts" {
				continue
			}
			payload[k] = v
		}
		payload["sport"] = input.Sport
		payload["league"] = input.League
		payload["data_source"] = input.Feed

		records = append(records, types.EntityRecord{
			EntityType:      entityType,
			EntityID:        stringField(item, "entity_id"),
			Payload:         payload,
			SourceTimestamp: sourceTS,
			IngestedAt:      now,
			BatchID:         batchID,
		})
	}

	return records
}

// =============================================================================
// Helpers
// =============================================================================

// invalidRecord carries a structurally unusable event through
// validation, where the feed-shape rule rejects it.
func invalidRecord(id, reason string, input types.RawInput, batchID string, now time.Time) types.EntityRecord {
	if id == "" {
		id = "unidentified"
	}
	return types.EntityRecord{
		EntityType: types.EntityEvent,
		EntityID:   id,
		Payload: map[string]any{
			"sport":          input.Sport,
			"league":         input.League,
			"data_source":    input.Feed,
			"invalid_reason": reason,
		},
		SourceTimestamp: now,
		IngestedAt:      now,
		BatchID:         batchID,
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func eventTime(event map[string]any, fallback time.Time) time.Time {
	if raw := stringField(event, "date"); raw != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t.UTC()
			}
		}
	}
	return fallback
}

func statusName(competition map[string]any) string {
	status, ok := competition["status"].(map[string]any)
	if !ok {
		return ""
	}
	typeBlock, ok := status["type"].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(typeBlock, "name")
}

func teamName(competitor map[string]any) string {
	if team, ok := competitor["team"].(map[string]any); ok {
		return stringField(team, "displayName")
	}
	return ""
}

func teamAbbrev(competitor map[string]any) string {
	if team, ok := competitor["team"].(map[string]any); ok {
		return stringField(team, "abbreviation")
	}
	return ""
}

// scoreField reads a competitor score, which ESPN delivers as a
// string.
func scoreField(competitor map[string]any) (float64, bool) {
	switch v := competitor["score"].(type) {
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f, true
		}
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
