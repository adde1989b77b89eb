// Package decrypt recovers a swap's plaintext fields from its on-chain
// ciphertext using ECDH with the recipient's app-siloed viewing secret
// (spec.md §4.2, component C2). The circuit's own verification of this
// same protocol is out of scope here; this package only needs to agree
// with it bit for bit on what counts as a successful decryption.
package decrypt

import (
	"crypto/aes"
	"crypto/cipher"

	bn254fr "github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"

	"github.com/lotpnl/pnl-proof-host/internal/field"
	"github.com/lotpnl/pnl-proof-host/internal/pnlerrors"
	"github.com/lotpnl/pnl-proof-host/internal/poseidon"
)

const (
	// MessageCiphertextLen is the number of field elements packed into a
	// swap ciphertext body: one ephemeral-public-key x-coordinate followed
	// by the encrypted plaintext payload.
	MessageCiphertextLen = 17
	// NumPlaintextFields is the width of the recovered plaintext record:
	// [_, _, token_in, token_out, amount_in, amount_out, is_exact_input].
	NumPlaintextFields = 7
	// bytesPerField is the usable byte width of a field element once its
	// reserved high byte is dropped.
	bytesPerField = 31

	kdfKeySeparator   uint32 = 101
	kdfNonceSeparator uint32 = 102
)

// PlaintextFields is the recovered record for one swap.
type PlaintextFields [NumPlaintextFields]field.Element

// Decrypt attempts ECDH decryption of body under viewingSecret, trying
// both y-coordinate preimages of the ephemeral point (the sign ambiguity
// spec.md §4.2 resolves via a plaintext sign bit once one candidate
// authenticates). ok is false, with a nil error, exactly when every
// candidate fails AEAD authentication — the "MAC failure → none" case.
func Decrypt(body []field.Element, viewingSecret field.Element) (fields PlaintextFields, ok bool, err error) {
	if len(body) != MessageCiphertextLen {
		return PlaintextFields{}, false, pnlerrors.InvalidInput(
			"ciphertext body must carry exactly MessageCiphertextLen fields")
	}

	packed := packFields(body[1:])

	for _, sign := range [2]bool{false, true} {
		point, valid := liftX(body[0], sign)
		if !valid {
			continue
		}
		shared := scalarMul(point, viewingSecret)
		key, nonce := kdf(shared)

		plaintext, decErr := aeadOpen(key, nonce, packed)
		if decErr != nil {
			continue
		}
		return unpackFields(plaintext), true, nil
	}

	return PlaintextFields{}, false, nil
}

// liftX recovers the y-coordinate of a twisted-Edwards point from its
// x-coordinate, selecting between the curve's two preimages by sign.
func liftX(x field.Element, sign bool) (twistededwards.PointAffine, bool) {
	curve := twistededwards.GetEdwardsCurve()

	one := bn254fr.One()
	xr := x.Raw()

	var xx, num, den bn254fr.Element
	xx.Square(&xr)
	num.Mul(&xx, &curve.A)
	num.Sub(&one, &num)
	den.Mul(&xx, &curve.D)
	den.Sub(&one, &den)
	if den.IsZero() {
		return twistededwards.PointAffine{}, false
	}

	var ySquared, y bn254fr.Element
	den.Inverse(&den)
	ySquared.Mul(&num, &den)
	if y.Sqrt(&ySquared) == nil {
		return twistededwards.PointAffine{}, false
	}
	if sign {
		y.Neg(&y)
	}

	return twistededwards.PointAffine{X: xr, Y: y}, true
}

// scalarMul computes secret * point, the ECDH shared point.
func scalarMul(point twistededwards.PointAffine, secret field.Element) twistededwards.PointAffine {
	var out twistededwards.PointAffine
	scalar := secret.BigInt()
	out.ScalarMultiplication(&point, scalar)
	return out
}

// kdf derives a 16-byte AES-128 key and a 12-byte GCM nonce from the
// shared point's x-coordinate via domain-separated Poseidon2 hashing.
func kdf(shared twistededwards.PointAffine) (key, nonce []byte) {
	x := field.FromRaw(shared.X)
	keyField := poseidon.Hs([]field.Element{x}, kdfKeySeparator)
	nonceField := poseidon.Hs([]field.Element{x}, kdfNonceSeparator)
	keyBytes := keyField.Bytes()
	nonceBytes := nonceField.Bytes()
	return keyBytes[:16], nonceBytes[:12]
}

func aeadOpen(key, nonce, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// packFields unpacks a vector of field elements into a flat byte buffer,
// dropping each element's reserved high byte (31 usable bytes per field).
func packFields(fields []field.Element) []byte {
	out := make([]byte, 0, len(fields)*bytesPerField)
	for _, f := range fields {
		b := f.Bytes()
		out = append(out, b[1:]...) // drop the reserved high byte
	}
	return out
}

// unpackFields re-chunks a decrypted byte stream back into
// NumPlaintextFields field elements, bytesPerField bytes each.
func unpackFields(data []byte) PlaintextFields {
	var out PlaintextFields
	for i := 0; i < NumPlaintextFields; i++ {
		start := i * bytesPerField
		end := start + bytesPerField
		if start >= len(data) {
			out[i] = field.Zero()
			continue
		}
		if end > len(data) {
			end = len(data)
		}
		out[i] = field.SetBytes(data[start:end])
	}
	return out
}
