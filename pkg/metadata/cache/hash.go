package cache

import "github.com/cespare/xxhash/v2"

// direntHash computes the 64-bit, non-cryptographic, well-distributed hash
// key used to place a dirent in its directory's AVL index. The reference
// design uses MurmurHash3; this package uses xxhash instead, which has the
// same distribution and collision properties for this purpose and is already
// part of this project's dependency graph (see SPEC_FULL.md §4.1).
func direntHash(name string) uint64 {
	return xxhash.Sum64String(name)
}

// probeKey computes the insertion/lookup key for the j-th colliding name
// under quadratic probing: k + j + j^2 (mod 2^64). j is 0 for the first,
// uncollided attempt.
func probeKey(k uint64, j int) uint64 {
	jj := uint64(j)
	return k + jj + jj*jj
}
