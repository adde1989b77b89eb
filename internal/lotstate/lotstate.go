// Package lotstate implements the fixed-height sparse Merkle tree of
// per-token FIFO lot arrays that the swap driver mutates in place between
// successive swaps (spec.md §4.3, component C3).
package lotstate

import (
	"github.com/holiman/uint256"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
)

const (
	// HeightLot is the Merkle height of the tree (8 leaves).
	HeightLot = 3
	// NumSlots is the number of leaves, one per distinct tracked token.
	NumSlots = 1 << HeightLot
	// MaxLots bounds the FIFO lot array a single token leaf can encode.
	MaxLots = 32
	// leafPreimageLen is 2 (token, numLots) + 2*MaxLots (amount, cost pairs).
	leafPreimageLen = 2 + 2*MaxLots
)

// Lot is a single FIFO acquisition record. A present lot has Amount > 0; an
// empty lot has both fields zero.
type Lot struct {
	Amount      *uint256.Int
	CostPerUnit *uint256.Int
}

// EmptyLot returns the zero-value lot used to pad unused slots.
func EmptyLot() Lot {
	return Lot{Amount: uint256.NewInt(0), CostPerUnit: uint256.NewInt(0)}
}

func (l Lot) isEmpty() bool {
	return l.Amount == nil || l.Amount.IsZero()
}

type slot struct {
	token    field.Element
	lots     [MaxLots]Lot
	numLots  int
	assigned bool
}

// Tree is the height-3 sparse Merkle tree binding up to NumSlots distinct
// tokens to a leaf each. It is owned exclusively by the aggregation run
// that mutates it; see the concurrency notes on the swap driver.
type Tree struct {
	leaves  [NumSlots]field.Element
	slots   [NumSlots]slot
	tokenAt map[field.Element]int
}

// New returns an empty lot-state tree; every leaf starts at the zero
// element and no tokens are bound to a slot.
func New() *Tree {
	t := &Tree{tokenAt: make(map[field.Element]int, NumSlots)}
	for i := range t.leaves {
		t.slots[i].lots = [MaxLots]Lot{}
		for j := range t.slots[i].lots {
			t.slots[i].lots[j] = EmptyLot()
		}
	}
	return t
}

// Assign returns token's bound slot index, assigning the lowest unclaimed
// slot on first touch. Slot assignment is monotonic: once bound, a token
// never changes slot. Returns LotTreeFull once all NumSlots are claimed.
func (t *Tree) Assign(token field.Element) (int, error) {
	if idx, ok := t.tokenAt[token]; ok {
		return idx, nil
	}
	for i := 0; i < NumSlots; i++ {
		if !t.slots[i].assigned {
			t.slots[i].assigned = true
			t.slots[i].token = token
			t.tokenAt[token] = i
			return i, nil
		}
	}
	return -1, pnlerrors.LotTreeFull()
}

// GetLots returns token's current lots padded to MaxLots, the number of
// live lots, and its slot index. Slot is -1 if token has not been assigned
// yet — the caller must Assign before mutating.
func (t *Tree) GetLots(token field.Element) (lots [MaxLots]Lot, numLots int, slotIndex int) {
	idx, ok := t.tokenAt[token]
	if !ok {
		return emptyLots(), 0, -1
	}
	return t.slots[idx].lots, t.slots[idx].numLots, idx
}

func emptyLots() [MaxLots]Lot {
	var lots [MaxLots]Lot
	for i := range lots {
		lots[i] = EmptyLot()
	}
	return lots
}

// SiblingPath returns the bottom-up sibling hashes for slot, recomputing
// all internal levels from the current leaves. O(NumSlots) per call, which
// is acceptable at NumSlots=8.
func (t *Tree) SiblingPath(slotIndex int) [HeightLot]field.Element {
	levels := t.levels()
	var path [HeightLot]field.Element
	idx := slotIndex
	for level := 0; level < HeightLot; level++ {
		sibling := idx ^ 1
		path[level] = levels[level][sibling]
		idx /= 2
	}
	return path
}

// Root returns the Merkle root over the current leaves.
func (t *Tree) Root() field.Element {
	levels := t.levels()
	return levels[HeightLot][0]
}

// levels rebuilds every tree level from the current leaf array; levels[0]
// is the leaves themselves and levels[HeightLot] is the single root.
func (t *Tree) levels() [HeightLot + 1][]field.Element {
	var levels [HeightLot + 1][]field.Element
	levels[0] = append([]field.Element(nil), t.leaves[:]...)
	for l := 0; l < HeightLot; l++ {
		cur := levels[l]
		next := make([]field.Element, len(cur)/2)
		for i := 0; i < len(cur); i += 2 {
			next[i/2] = poseidon.Pair(cur[i], cur[i+1])
		}
		levels[l+1] = next
	}
	return levels
}

// SetLots assigns token if needed, recomputes its leaf hash over the fixed
// 66-field preimage, and writes the updated lot array back.
func (t *Tree) SetLots(token field.Element, lots [MaxLots]Lot, numLots int) error {
	idx, err := t.Assign(token)
	if err != nil {
		return err
	}
	t.slots[idx].lots = lots
	t.slots[idx].numLots = numLots
	t.leaves[idx] = HashLots(token, numLots, lots)
	return nil
}

// HashLots is the pure static helper reproducing a leaf's preimage layout:
// H([token, num_lots, amount_0, cost_0, ..., amount_{MaxLots-1}, cost_{MaxLots-1}]).
// The preimage length is always leafPreimageLen regardless of num_lots;
// unused trailing slots are zero.
func HashLots(token field.Element, numLots int, lots [MaxLots]Lot) field.Element {
	preimage := make([]field.Element, 0, leafPreimageLen)
	preimage = append(preimage, token, field.FromUint64(uint64(numLots)))
	for _, l := range lots {
		if l.isEmpty() {
			preimage = append(preimage, field.Zero(), field.Zero())
			continue
		}
		preimage = append(preimage, field.FromBigInt(l.Amount.ToBig()), field.FromBigInt(l.CostPerUnit.ToBig()))
	}
	return poseidon.H(preimage)
}

// Compact removes empty lots by left-shifting, preserving relative order,
// and returns the resulting live-lot count. The caller is responsible for
// zeroing amounts to mark a lot empty before calling Compact.
func Compact(lots [MaxLots]Lot) ([MaxLots]Lot, int) {
	out := emptyLots()
	n := 0
	for _, l := range lots {
		if l.isEmpty() {
			continue
		}
		if n >= MaxLots {
			break
		}
		out[n] = l
		n++
	}
	return out, n
}
