package rank

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Session defaults for the round filter. At ~87k bits and 30 hashes the false
// positive rate stays negligible well into the thousands of rounds a single
// rating session can produce.
const (
	RoundFilterBits   = 87000
	RoundFilterHashes = 30
)

// RoundFilter is a fixed-size bloom filter over unordered id pairs already
// shown this session. It can over-report (a pair never shown may test true)
// but never under-reports: once added, a pair always tests true. Callers use
// it as a soft "avoid immediate repeats" heuristic, not as an authoritative
// duplicate check. It is never persisted.
type RoundFilter struct {
	bits *bitset.BitSet
	m    uint64 // total bits
	k    uint32 // hash functions per key
	adds int
}

// NewRoundFilter creates a filter with m bits and k hash functions.
func NewRoundFilter(m uint64, k uint32) *RoundFilter {
	if m == 0 || k == 0 {
		panic("rank: round filter needs m > 0 and k > 0")
	}
	return &RoundFilter{bits: bitset.New(uint(m)), m: m, k: k}
}

// NewSessionRoundFilter creates a filter at the session default sizing.
func NewSessionRoundFilter() *RoundFilter {
	return NewRoundFilter(RoundFilterBits, RoundFilterHashes)
}

// Add records the pair (a, b). Order does not matter.
func (f *RoundFilter) Add(a, b int64) {
	h1, h2 := pairHash(pairKey(a, b))
	for i := uint32(0); i < f.k; i++ {
		f.bits.Set(uint((h1 + uint64(i)*h2) % f.m))
	}
	f.adds++
}

// PossiblyContains reports whether (a, b) may have been added, in either
// order. False means definitely never added.
func (f *RoundFilter) PossiblyContains(a, b int64) bool {
	h1, h2 := pairHash(pairKey(a, b))
	for i := uint32(0); i < f.k; i++ {
		if !f.bits.Test(uint((h1 + uint64(i)*h2) % f.m)) {
			return false
		}
	}
	return true
}

// Adds returns the number of pairs recorded so far.
func (f *RoundFilter) Adds() int { return f.adds }

// pairKey canonicalizes an unordered pair by sorting the ids, so (a,b) and
// (b,a) map to the same key. A pair of equal ids is a programming error.
func pairKey(a, b int64) string {
	if a == b {
		panic(fmt.Sprintf("rank: pair with identical ids %d", a))
	}
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d-%d", a, b)
}

// pairHash derives two independent 64-bit hashes for double hashing:
// bit_i = h1 + i*h2. FNV-1a forward, then a reseeded reverse pass.
func pairHash(s string) (h1, h2 uint64) {
	const (
		fnvOffset = 14695981039346656037
		fnvPrime  = 1099511628211
	)
	h1 = fnvOffset
	for i := 0; i < len(s); i++ {
		h1 ^= uint64(s[i])
		h1 *= fnvPrime
	}
	h2 = fnvOffset ^ 0x5555555555555555
	for i := len(s) - 1; i >= 0; i-- {
		h2 ^= uint64(s[i])
		h2 *= fnvPrime
	}
	// h2 must be odd so the probe sequence covers the filter.
	h2 |= 1
	return h1, h2
}
