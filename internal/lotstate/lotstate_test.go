package lotstate

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
)

func lot(amount, cost uint64) Lot {
	return Lot{Amount: uint256.NewInt(amount), CostPerUnit: uint256.NewInt(cost)}
}

func TestAssignIsMonotonicAndIdempotent(t *testing.T) {
	tree := New()
	tokenA := field.FromUint64(1)
	idx1, err := tree.Assign(tokenA)
	require.NoError(t, err)
	idx2, err := tree.Assign(tokenA)
	require.NoError(t, err)
	assert.Equal(t, idx1, idx2)
}

func TestAssignFillsLowestFreeSlotAndFailsWhenFull(t *testing.T) {
	tree := New()
	for i := 0; i < NumSlots; i++ {
		idx, err := tree.Assign(field.FromUint64(uint64(i + 100)))
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	_, err := tree.Assign(field.FromUint64(999))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pnlerrors.ErrLotTreeFull))
}

func TestGetLotsUnassignedReturnsSlotMinusOne(t *testing.T) {
	tree := New()
	lots, num, idx := tree.GetLots(field.FromUint64(7))
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, num)
	for _, l := range lots {
		assert.True(t, l.isEmpty())
	}
}

func TestSetLotsUpdatesRootAndLeafMatchesHashLots(t *testing.T) {
	tree := New()
	token := field.FromUint64(42)
	r0 := tree.Root()

	var lots [MaxLots]Lot
	for i := range lots {
		lots[i] = EmptyLot()
	}
	lots[0] = lot(1000, 50)
	require.NoError(t, tree.SetLots(token, lots, 1))

	r1 := tree.Root()
	assert.False(t, r0.Equal(r1), "root must change after a leaf mutation")

	// The stored leaf is HashLots over the same token, num_lots and lots.
	h := HashLots(token, 1, lots)
	assert.True(t, h.Equal(tree.leaves[0]))
}

func TestSiblingPathLengthMatchesHeight(t *testing.T) {
	tree := New()
	token := field.FromUint64(5)
	idx, err := tree.Assign(token)
	require.NoError(t, err)
	path := tree.SiblingPath(idx)
	assert.Len(t, path, HeightLot)
}

func TestCompactRemovesEmptyAndPreservesOrder(t *testing.T) {
	var lots [MaxLots]Lot
	for i := range lots {
		lots[i] = EmptyLot()
	}
	lots[0] = lot(0, 50) // consumed to zero
	lots[1] = lot(20, 60)
	lots[2] = lot(0, 70) // consumed to zero
	lots[3] = lot(30, 80)

	compacted, n := Compact(lots)
	require.Equal(t, 2, n)
	assert.Equal(t, uint64(20), compacted[0].Amount.Uint64())
	assert.Equal(t, uint64(30), compacted[1].Amount.Uint64())
	for i := n; i < MaxLots; i++ {
		assert.True(t, compacted[i].isEmpty())
	}
}

func TestTwoDistinctTokensProduceDifferentSlots(t *testing.T) {
	tree := New()
	a, err := tree.Assign(field.FromUint64(1))
	require.NoError(t, err)
	b, err := tree.Assign(field.FromUint64(2))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
