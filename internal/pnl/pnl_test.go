package pnl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTripIdentityForRepresentativeValues(t *testing.T) {
	cases := []int64{0, 1, -1, math.MaxInt64, math.MinInt64, 12345, -12345}
	for _, v := range cases {
		got := Decode(Encode(v))
		assert.Equal(t, v, got, "round trip must be identity for %d", v)
	}
}

func TestNegativeValueSetsHighBit(t *testing.T) {
	f := Encode(-1)
	assert.Equal(t, uint64(math.MaxUint64), f.Uint64())
}

func TestPositiveValueBelowSignBitDecodesUnchanged(t *testing.T) {
	f := Encode(42)
	assert.Equal(t, int64(42), Decode(f))
}
