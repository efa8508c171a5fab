package types

import "time"

// FeatureVector is a derived, ML-ready numeric representation of an
// entity record. It is keyed by (EntityType, EntityID,
// FeatureSetVersion) and invalidated whenever its source record is
// updated past SourceRecordVersion.
type FeatureVector struct {
	EntityType        EntityType
	EntityID          string
	FeatureSetVersion int

	// SourceRecordVersion is the entity record version the vector
	// was derived from.
	SourceRecordVersion int

	// Names and Values are parallel, ordered slices.
	Names  []string
	Values []float64

	ComputedAt time.Time
}

// Key returns the cache key for this vector.
func (fv *FeatureVector) Key() CacheKey {
	return FeatureKey(fv.EntityType, fv.EntityID, fv.FeatureSetVersion)
}

// Get returns the value of a named feature.
func (fv *FeatureVector) Get(name string) (float64, bool) {
	for i, n := range fv.Names {
		if n == name {
			return fv.Values[i], true
		}
	}
	return 0, false
}

// Len returns the number of features in the vector.
func (fv *FeatureVector) Len() int {
	return len(fv.Values)
}

// EstimateSize returns a rough in-memory size in bytes.
func (fv *FeatureVector) EstimateSize() int {
	size := 64 + len(fv.EntityID)
	for _, n := range fv.Names {
		size += len(n) + 16
	}
	size += 8 * len(fv.Values)
	return size
}
