// Package lru provides the LRU-backed decision cache used by the screener.
package lru

import (
	"strconv"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/screener"
)

// decisionCache keys entries by "<version>:<number>". A rule mutation bumps
// the version, so stale decisions are never returned and simply age out.
type decisionCache struct {
	lru       *lru.Cache[string, domain.Decision]
	capacity  int
	hits      uint64
	misses    uint64
	evictions uint64
}

// disabledCache is a no-op cache used when size <= 0.
type disabledCache struct{}

// New creates a DecisionCache holding up to size decisions. If size <= 0 a
// disabled cache is returned that always misses.
func New(size int) (screener.DecisionCache, error) {
	if size <= 0 {
		return &disabledCache{}, nil
	}

	dc := &decisionCache{capacity: size}
	cache, err := lru.NewWithEvict(size, func(_ string, _ domain.Decision) {
		atomic.AddUint64(&dc.evictions, 1)
	})
	if err != nil {
		return nil, err
	}
	dc.lru = cache
	return dc, nil
}

func key(version uint64, number string) string {
	return strconv.FormatUint(version, 10) + ":" + number
}

// Get looks up a decision, counting hits and misses.
func (c *decisionCache) Get(version uint64, number string) (domain.Decision, bool) {
	if val, ok := c.lru.Get(key(version, number)); ok {
		atomic.AddUint64(&c.hits, 1)
		return val, true
	}
	atomic.AddUint64(&c.misses, 1)
	return domain.Decision{}, false
}

func (c *decisionCache) Put(version uint64, number string, d domain.Decision) {
	c.lru.Add(key(version, number), d)
}

func (c *decisionCache) Len() int { return c.lru.Len() }

// Purge clears all entries. Purged entries count as evictions.
func (c *decisionCache) Purge() { c.lru.Purge() }

func (c *decisionCache) Stats() screener.CacheStats {
	return screener.CacheStats{
		Capacity:  c.capacity,
		Size:      c.lru.Len(),
		Hits:      atomic.LoadUint64(&c.hits),
		Misses:    atomic.LoadUint64(&c.misses),
		Evictions: atomic.LoadUint64(&c.evictions),
	}
}

func (d *disabledCache) Get(uint64, string) (domain.Decision, bool) {
	return domain.Decision{}, false
}

func (d *disabledCache) Put(uint64, string, domain.Decision) {}

func (d *disabledCache) Len() int { return 0 }

func (d *disabledCache) Purge() {}

func (d *disabledCache) Stats() screener.CacheStats { return screener.CacheStats{} }

var _ screener.DecisionCache = (*decisionCache)(nil)
var _ screener.DecisionCache = (*disabledCache)(nil)
