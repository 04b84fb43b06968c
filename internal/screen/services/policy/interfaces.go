package policy

// BloomFilter is the minimal interface the rule set needs from a Bloom filter.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory constructs Bloom filters sized for a capacity and a target
// false-positive rate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}
