// Package merkletree provides the shared incremental-Merkle-tree helpers
// used for the ciphertext commitment leaf and by the aggregator
// (spec.md §4.7, component C7): padding to a power of two,
// pairwise Poseidon2 combination, and a memoized zero-hash cache.
package merkletree

import (
	"sync"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
)

// IMT (incremental Merkle tree) pads leaves with zero up to the next power
// of two, then pair-hashes level by level, returning the root. A single
// leaf is its own root; an empty leaf set roots to zero.
func IMT(leaves []field.Element) field.Element {
	if len(leaves) == 0 {
		return field.Zero()
	}
	padded := padToPowerOfTwo(leaves)
	for len(padded) > 1 {
		next := make([]field.Element, len(padded)/2)
		for i := 0; i < len(padded); i += 2 {
			next[i/2] = poseidon.Pair(padded[i], padded[i+1])
		}
		padded = next
	}
	return padded[0]
}

func padToPowerOfTwo(leaves []field.Element) []field.Element {
	size := 1
	for size < len(leaves) {
		size *= 2
	}
	padded := make([]field.Element, size)
	copy(padded, leaves)
	return padded
}

// CiphertextToLeaf chunks a ciphertext buffer into 32-byte, big-endian,
// right-padded field elements and hashes the whole vector with domain
// separator 0 — the same leaf the swap driver attaches as the per-swap
// Merkle leaf when later summed by the aggregator.
func CiphertextToLeaf(body []byte) field.Element {
	fields := ciphertextFields(body)
	return poseidon.Hs(fields, 0)
}

// ciphertextFields splits body into field.ByteLen-byte big-endian chunks,
// right-padding the final chunk with zero bytes.
func ciphertextFields(body []byte) []field.Element {
	n := (len(body) + field.ByteLen - 1) / field.ByteLen
	if n == 0 {
		return nil
	}
	out := make([]field.Element, n)
	for i := 0; i < n; i++ {
		start := i * field.ByteLen
		end := start + field.ByteLen
		var chunk [field.ByteLen]byte
		if end > len(body) {
			end = len(body)
		}
		copy(chunk[:], body[start:end])
		out[i] = field.SetBytes(chunk[:])
	}
	return out
}

// ZeroHashCache memoizes the zero-hash table, grown on demand to any depth:
// zeroHash[0] = 0, zeroHash[l] = H([zeroHash[l-1], zeroHash[l-1]]).
// Used by the aggregator to pad missing right children at every level.
type ZeroHashCache struct {
	mu    sync.Mutex
	table []field.Element
}

// NewZeroHashCache creates an empty, lazily-grown cache. A single instance
// may be shared across concurrent aggregation runs; growth is
// mutex-guarded, matching the read-mostly shared-resource model of spec §5.
func NewZeroHashCache() *ZeroHashCache {
	return &ZeroHashCache{table: []field.Element{field.Zero()}}
}

// At returns zeroHash[level], growing the cache if necessary.
func (c *ZeroHashCache) At(level int) field.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.table) <= level {
		prev := c.table[len(c.table)-1]
		c.table = append(c.table, poseidon.Pair(prev, prev))
	}
	return c.table[level]
}

// Table returns a copy of the zero-hash table from level 0 to maxDepth
// inclusive.
func (c *ZeroHashCache) Table(maxDepth int) []field.Element {
	out := make([]field.Element, maxDepth+1)
	for l := 0; l <= maxDepth; l++ {
		out[l] = c.At(l)
	}
	return out
}
