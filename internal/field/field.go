// Package field wraps the BN254 scalar field element used throughout the
// pipeline: Merkle hashing, lot-state leaves, ciphertext packing and the
// signed-PnL encoding all operate over this field.
package field

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ByteLen is the fixed big-endian serialization length of a Element.
const ByteLen = 32

// Element is a single element of the BN254 scalar field.
type Element struct {
	v fr.Element
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{}
}

// FromUint64 builds a field element from an unsigned integer.
func FromUint64(v uint64) Element {
	var e Element
	e.v.SetUint64(v)
	return e
}

// FromBigInt reduces a big.Int modulo the field order.
func FromBigInt(v *big.Int) Element {
	var e Element
	e.v.SetBigInt(v)
	return e
}

// IsZero reports whether the element is the additive identity.
func (e Element) IsZero() bool {
	return e.v.IsZero()
}

// Equal reports whether two elements represent the same field value.
func (e Element) Equal(o Element) bool {
	return e.v.Equal(&o.v)
}

// Add returns e + o.
func (e Element) Add(o Element) Element {
	var r Element
	r.v.Add(&e.v, &o.v)
	return r
}

// Bytes returns the big-endian, fixed 32-byte encoding of e.
func (e Element) Bytes() [ByteLen]byte {
	return e.v.Bytes()
}

// SetBytes reduces a big-endian byte slice modulo the field order. Unlike
// Bytes, the input need not be exactly ByteLen bytes.
func SetBytes(b []byte) Element {
	var e Element
	e.v.SetBytes(b)
	return e
}

// Hex returns the 0x-prefixed, zero-padded hex encoding of e.
func (e Element) Hex() string {
	b := e.v.Bytes()
	return "0x" + hex.EncodeToString(b[:])
}

// ParseHex parses a 0x-prefixed (or bare) hex string into an element.
func ParseHex(s string) (Element, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Element{}, fmt.Errorf("field: invalid hex %q: %w", s, err)
	}
	return SetBytes(b), nil
}

// BigInt returns e as an unsigned big.Int in [0, modulus).
func (e Element) BigInt() *big.Int {
	var out big.Int
	e.v.BigInt(&out)
	return &out
}

// Uint64 returns e truncated to the low 64 bits of its canonical
// representation. Used by the signed-PnL round trip (spec §4.5), where the
// field value is known by construction to fit in 64 bits.
func (e Element) Uint64() uint64 {
	var out big.Int
	e.v.BigInt(&out)
	return out.Uint64()
}

// Raw exposes the underlying gnark-crypto element for packages (poseidon2)
// that need to feed it directly into the permutation.
func (e Element) Raw() fr.Element {
	return e.v
}

// FromRaw wraps a gnark-crypto element.
func FromRaw(v fr.Element) Element {
	return Element{v: v}
}
