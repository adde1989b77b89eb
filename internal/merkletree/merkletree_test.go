package merkletree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
)

func TestIMTEmptyIsZero(t *testing.T) {
	assert.True(t, IMT(nil).IsZero())
}

func TestIMTSingleLeafIsItself(t *testing.T) {
	leaf := field.FromUint64(42)
	assert.True(t, IMT([]field.Element{leaf}).Equal(leaf))
}

func TestIMTPairMatchesPoseidonPair(t *testing.T) {
	a := field.FromUint64(1)
	b := field.FromUint64(2)
	want := poseidon.Pair(a, b)
	got := IMT([]field.Element{a, b})
	assert.True(t, want.Equal(got))
}

func TestIMTPadsOddLeafCountWithZero(t *testing.T) {
	a := field.FromUint64(1)
	b := field.FromUint64(2)
	c := field.FromUint64(3)
	want := IMT([]field.Element{a, b, c, field.Zero()})
	got := IMT([]field.Element{a, b, c})
	assert.True(t, want.Equal(got))
}

func TestCiphertextToLeafDeterministic(t *testing.T) {
	body := []byte("some ciphertext bytes that span more than one field chunk of 32 bytes total")
	a := CiphertextToLeaf(body)
	b := CiphertextToLeaf(body)
	assert.True(t, a.Equal(b))
}

func TestCiphertextToLeafSensitiveToContent(t *testing.T) {
	a := CiphertextToLeaf([]byte("abc"))
	b := CiphertextToLeaf([]byte("abd"))
	assert.False(t, a.Equal(b))
}

func TestZeroHashCacheMatchesPairwiseDefinition(t *testing.T) {
	c := NewZeroHashCache()
	l0 := c.At(0)
	assert.True(t, l0.IsZero())
	l1 := c.At(1)
	assert.True(t, l1.Equal(poseidon.Pair(l0, l0)))
	l2 := c.At(2)
	assert.True(t, l2.Equal(poseidon.Pair(l1, l1)))
}

func TestZeroHashCacheTableLength(t *testing.T) {
	c := NewZeroHashCache()
	table := c.Table(3)
	assert.Len(t, table, 4)
	for l := 1; l < len(table); l++ {
		assert.True(t, table[l].Equal(poseidon.Pair(table[l-1], table[l-1])))
	}
}
