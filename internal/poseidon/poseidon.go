// Package poseidon provides the host-native counterpart of the circuit's
// Poseidon2 permutation: a fixed-width sponge over the BN254 scalar field,
// built on gnark-crypto's native (out-of-circuit) Poseidon2 permutation.
//
// The circuit computes the same permutation in-circuit (out of scope here,
// per spec.md §1); this package only needs to reproduce its outputs bit for
// bit so that host-mirrored Merkle roots and ciphertext leaves agree with
// what the circuit asserts.
package poseidon

import (
	"sync"

	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"

	"github.com/lotpnl/pnl-proof-host/internal/field"
)

// LeafIndexSilo is the only domain separator the core ever names explicitly
// (spec.md §3): it tags a tree-index hash derived for the public-data tree.
const LeafIndexSilo uint32 = 23

const (
	width         = 3 // sponge width t: rate 2 + capacity 1
	rate          = 2
	fullRounds    = 8
	partialRounds = 56
)

var (
	permOnce sync.Once
	perm     *poseidon2.Permutation
)

func permutation() *poseidon2.Permutation {
	permOnce.Do(func() {
		perm = poseidon2.NewPermutation(width, fullRounds, partialRounds)
	})
	return perm
}

// H hashes an arbitrary-length vector of field elements with a zero capacity
// (no domain separation), matching the circuit's default hash gate.
func H(inputs []field.Element) field.Element {
	return sponge(inputs, 0)
}

// Hs hashes a vector of field elements domain-separated by sep, matching the
// circuit's separator-parameterized hash gate.
func Hs(inputs []field.Element, sep uint32) field.Element {
	return sponge(inputs, sep)
}

// Pair is the two-element Merkle combine H([left, right]) used throughout
// the lot-state tree, the ciphertext commitment tree and the aggregator.
func Pair(left, right field.Element) field.Element {
	return H([]field.Element{left, right})
}

// sponge absorbs inputs rate-elements at a time (zero-padded to a whole
// number of blocks, at least one) into a width-wide state seeded with the
// domain separator in the capacity slot, then squeezes one element.
func sponge(inputs []field.Element, sep uint32) field.Element {
	state := make([]bn254fr.Element, width)
	state[rate].SetUint64(uint64(sep))

	numBlocks := (len(inputs) + rate - 1) / rate
	if numBlocks == 0 {
		numBlocks = 1
	}

	p := permutation()
	for b := 0; b < numBlocks; b++ {
		for j := 0; j < rate; j++ {
			idx := b*rate + j
			if idx >= len(inputs) {
				break
			}
			raw := inputs[idx].Raw()
			state[j].Add(&state[j], &raw)
		}
		_ = p.Permutation(state)
	}

	return field.FromRaw(state[0])
}
