// Package types defines the core data model shared by the
// validation, persistence, caching, and coordination layers:
// entity records, feature vectors, cache keys and tiers, and
// per-batch quality reports.
package types
