// Package bmt implements the sparse binary Merkle tree that backs the
// fraud-proof engine: pair hashing, zero-subtree caching, a prover-side
// tree that records every materialized node, and a strict witness-backed
// tree for single-step verification.
package bmt

import (
	"crypto/sha256"
	"sync"
)

// maxZeroDepth is the maximum depth of precomputed zero-subtree hashes.
const maxZeroDepth = 64

// zeroHashTable[0] is the all-zero chunk, zeroHashTable[i] the root of a
// height-i tree of zero leaves.
var (
	zeroHashOnce  sync.Once
	zeroHashTable [maxZeroDepth + 1][32]byte
)

func initZeroHashes() {
	zeroHashOnce.Do(func() {
		// Level 0 is the zero chunk (already zeroed by Go).
		for i := 1; i <= maxZeroDepth; i++ {
			zeroHashTable[i] = Hash(zeroHashTable[i-1], zeroHashTable[i-1])
		}
	})
}

// Hash computes SHA-256(a || b) for a pair of 32-byte nodes.
func Hash(a, b [32]byte) [32]byte {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return sha256.Sum256(buf[:])
}

// ZeroHash returns the root of a zero subtree of the given depth. Depth 0
// is the 32-byte zero chunk.
func ZeroHash(depth int) [32]byte {
	initZeroHashes()
	if depth < 0 {
		return [32]byte{}
	}
	if depth > maxZeroDepth {
		h := zeroHashTable[maxZeroDepth]
		for i := maxZeroDepth; i < depth; i++ {
			h = Hash(h, h)
		}
		return h
	}
	return zeroHashTable[depth]
}
