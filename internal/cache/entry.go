package cache

import (
	"time"

	"github.com/sportsedge/featurestore/internal/types"
)

// entry is a single cached value. Tier placement is an attribute of
// the entry rather than membership in a per-tier map, so an entry can
// never exist in two tiers at once.
type entry struct {
	key   types.CacheKey
	value any
	size  int64

	tier        types.Tier
	accessCount int64
	storedAt    time.Time
	lastAccess  time.Time
	expiresAt   time.Time

	// recent holds access timestamps inside the promotion window.
	// Pruned on every touch, so it stays bounded by the promotion
	// threshold plus the burst arriving within one window.
	recent []time.Time
}

// touch records an access at now and prunes window history older than
// windowStart. Returns the number of accesses inside the window,
// including this one.
func (e *entry) touch(now, windowStart time.Time) int {
	e.accessCount++
	e.lastAccess = now

	kept := e.recent[:0]
	for _, t := range e.recent {
		if !t.Before(windowStart) {
			kept = append(kept, t)
		}
	}
	e.recent = append(kept, now)

	return len(e.recent)
}

// expired reports whether the entry's TTL has elapsed at now.
// Expiry is enforced by the sweeper, not on access.
func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}
