package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/sportsedge/featurestore/internal/errors"
)

// cursor marks a resume position in the (source_ts, entity_id) scan
// order. It is opaque to callers.
type cursor struct {
	SourceTs time.Time `json:"ts"`
	EntityID string    `json:"id"`
}

// encodeCursor serializes a resume position.
func encodeCursor(ts time.Time, entityID string) string {
	data, _ := json.Marshal(cursor{SourceTs: ts.UTC(), EntityID: entityID})
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor parses an opaque cursor. Empty input means "from the
// beginning" and returns nil.
func decodeCursor(s string) (*cursor, error) {
	if s == "" {
		return nil, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCursor, s)
	}

	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidCursor, s)
	}
	if c.EntityID == "" && c.SourceTs.IsZero() {
		return nil, errors.ErrInvalidCursor
	}
	return &c, nil
}
