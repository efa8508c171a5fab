package types

import "fmt"

// KeyKind distinguishes cached entity records from cached feature
// vectors.
type KeyKind int

const (
	// KindEntity keys a cached EntityRecord.
	KindEntity KeyKind = iota

	// KindFeature keys a cached FeatureVector.
	KindFeature
)

// String returns the string representation of the kind.
func (k KeyKind) String() string {
	switch k {
	case KindEntity:
		return "entity"
	case KindFeature:
		return "feature"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// CacheKey is the composite key under which values are cached.
// A given key exists in at most one tier at a time.
type CacheKey struct {
	Kind       KeyKind
	EntityType EntityType
	EntityID   string

	// FeatureSetVersion is meaningful only for KindFeature keys.
	FeatureSetVersion int
}

// EntityKey builds the cache key for an entity record.
func EntityKey(entityType EntityType, entityID string) CacheKey {
	return CacheKey{Kind: KindEntity, EntityType: entityType, EntityID: entityID}
}

// FeatureKey builds the cache key for a feature vector.
func FeatureKey(entityType EntityType, entityID string, featureSetVersion int) CacheKey {
	return CacheKey{
		Kind:              KindFeature,
		EntityType:        entityType,
		EntityID:          entityID,
		FeatureSetVersion: featureSetVersion,
	}
}

// String returns a stable textual form, used for hashing and logs.
func (k CacheKey) String() string {
	if k.Kind == KindFeature {
		return fmt.Sprintf("feature/%s/%s/v%d", k.EntityType, k.EntityID, k.FeatureSetVersion)
	}
	return fmt.Sprintf("entity/%s/%s", k.EntityType, k.EntityID)
}
