package screener

import (
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/policy"
)

// RuleSource hands out the current compiled rule set. Implementations must
// return a complete snapshot, never one that is halfway through a mutation.
type RuleSource interface {
	Snapshot() *policy.RuleSet
}

// AuditSink records screened calls.
type AuditSink interface {
	Append(entry domain.AuditEntry)
}

// CacheStats reports lightweight decision cache metrics.
type CacheStats struct {
	Capacity  int
	Size      int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// DecisionCache caches decisions by rule-set version and normalized number.
type DecisionCache interface {
	Get(version uint64, number string) (domain.Decision, bool)
	Put(version uint64, number string, d domain.Decision)
	Len() int
	Purge()
	Stats() CacheStats
}
