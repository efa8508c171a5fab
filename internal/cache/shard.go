package cache

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/sportsedge/featurestore/internal/types"
)

// shard is one lock domain of the cache. All entry state is guarded
// by the shard mutex; cross-tier counters live on the Manager as
// atomics so capacity checks never take more than one shard lock.
type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func newShard() *shard {
	return &shard{entries: make(map[string]*entry)}
}

func shardIndex(key string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(n)) //nolint:gosec // shard count fits in uint32
}

// evictionCandidate selects the entry to evict from this shard's slice
// of a tier, or nil if the shard holds none. Selection is bottom
// quartile by access count, then oldest last access, then larger size.
// The entry at skip is never selected.
func (s *shard) evictionCandidate(tier types.Tier, skip string) *entry {
	var pool []*entry
	for k, e := range s.entries {
		if e.tier == tier && k != skip {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	// Bottom quartile by access count, minimum one entry.
	sortByAccessCount(pool)
	cut := len(pool) / 4
	if cut == 0 {
		cut = 1
	}
	pool = pool[:cut]

	victim := pool[0]
	for _, e := range pool[1:] {
		if better := olderOrLarger(e, victim); better {
			victim = e
		}
	}
	return victim
}

func sortByAccessCount(pool []*entry) {
	// Insertion sort. Pools are shard-local and small.
	for i := 1; i < len(pool); i++ {
		for j := i; j > 0 && pool[j].accessCount < pool[j-1].accessCount; j-- {
			pool[j], pool[j-1] = pool[j-1], pool[j]
		}
	}
}

// olderOrLarger reports whether a beats b as an eviction victim.
func olderOrLarger(a, b *entry) bool {
	if !a.lastAccess.Equal(b.lastAccess) {
		return a.lastAccess.Before(b.lastAccess)
	}
	return a.size > b.size
}

// expiredKeys returns the keys of entries whose TTL elapsed before now.
func (s *shard) expiredKeys(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k, e := range s.entries {
		if e.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}
