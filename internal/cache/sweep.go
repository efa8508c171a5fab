package cache

import (
	"time"

	"github.com/sportsedge/featurestore/internal/types"
	"github.com/sportsedge/featurestore/pkg/metrics"
)

// runSweeper retires expired entries on a fixed interval until Close.
func (m *Manager) runSweeper() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.TTLSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep removes every entry whose TTL elapsed before now. Expiry is
// enforced only here, so a stale entry can still be served between
// sweeps. Returns the number of entries removed.
func (m *Manager) Sweep() int {
	now := m.clock()
	removed := 0

	for _, s := range m.shards {
		// Candidates are collected under the lock, then re-checked
		// before deletion so a concurrent Put is never swept.
		for _, k := range s.expiredKeys(now) {
			s.mu.Lock()
			if e, ok := s.entries[k]; ok && e.expired(now) {
				delete(s.entries, k)
				m.count(e.tier).Add(-1)
				removed++
			}
			s.mu.Unlock()
		}
	}

	if removed > 0 {
		m.stats.Expired.Add(int64(removed))
		metrics.RecordExpired(removed)
		m.logger.Debug("ttl sweep", "removed", removed)
	}

	metrics.UpdateCacheSize(types.TierHot.String(), int(m.hotCount.Load()))
	metrics.UpdateCacheSize(types.TierWarm.String(), int(m.warmCount.Load()))

	return removed
}
