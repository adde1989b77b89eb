// Package pnl implements the signed 64-bit PnL <-> field encoding shared by
// the swap driver and the aggregator (spec.md §4.5 "Numeric policy").
package pnl

import "github.com/lotpnl/pnl-proof-host/internal/field"

// Encode packs a signed 64-bit PnL into a field element using its
// two's-complement bit pattern: pnl_field = (pnl as u64) as F.
func Encode(v int64) field.Element {
	return field.FromUint64(uint64(v))
}

// Decode inverts Encode. A field value with its high bit set (>= 2^63) is
// interpreted as the corresponding negative two's-complement value; both
// the circuit and this host mirror use the same convention.
func Decode(f field.Element) int64 {
	return int64(f.Uint64())
}

// Add sums two signed PnL values as the circuit does: wrapping 64-bit
// signed addition, re-encoded to a field afterward by the caller.
func Add(a, b int64) int64 {
	return a + b
}
