package types

import "fmt"

// Tier represents a cache tier. Hot and Warm hold in-memory copies;
// Cold means no cached copy exists and reads go to the store.
type Tier int

const (
	// TierHot is the smallest, fastest tier. Capacity-bounded by
	// entry count; target lookup under 10ms.
	TierHot Tier = iota

	// TierWarm is the larger second tier. Target lookup under 50ms.
	TierWarm

	// TierCold is the store itself: logically "not cached".
	TierCold
)

// String returns the string representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierWarm:
		return "warm"
	case TierCold:
		return "cold"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// ParseTier parses a string into a Tier.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "hot":
		return TierHot, nil
	case "warm":
		return TierWarm, nil
	case "cold":
		return TierCold, nil
	default:
		return TierCold, fmt.Errorf("unknown tier: %s", s)
	}
}

// Below returns the next slower tier. Demotion from Warm lands on
// Cold, meaning the entry is discarded and the store is authoritative.
func (t Tier) Below() Tier {
	switch t {
	case TierHot:
		return TierWarm
	default:
		return TierCold
	}
}

// Above returns the next faster tier. Promotion from Cold lands on
// Warm; Warm promotes to Hot once access frequency warrants it.
func (t Tier) Above() Tier {
	switch t {
	case TierCold:
		return TierWarm
	default:
		return TierHot
	}
}

// Cached reports whether the tier holds an in-memory copy.
func (t Tier) Cached() bool {
	return t == TierHot || t == TierWarm
}

// CachedTiers returns the tiers that hold in-memory copies, fastest
// first.
func CachedTiers() []Tier {
	return []Tier{TierHot, TierWarm}
}
