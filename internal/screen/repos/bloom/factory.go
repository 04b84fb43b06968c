// Package bloom provides the Bloom filters the policy engine uses to skip
// exact-number rules that cannot match a caller.
package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"

	"github.com/haukened/rr-screen/internal/screen/services/policy"
)

type factory struct{}

// NewFactory returns a policy.BloomFactory sized from capacity and FP rate.
func NewFactory() policy.BloomFactory { return factory{} }

// New constructs a filter sized for capacity keys at the target
// false-positive rate.
func (factory) New(capacity uint64, fpRate float64) policy.BloomFilter {
	m, k := size(capacity, fpRate)
	return &filter{bf: bitsbloom.New(uint(m), uint(k))}
}

var _ policy.BloomFactory = factory{}
