package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotpnl/pnl-proof-host/internal/field"
)

// encryptForTest builds a fixture ciphertext body the way an (out of scope)
// sender would: an ephemeral keypair, ECDH against the recipient's public
// key, then the same KDF and AEAD seal Decrypt expects to invert.
func encryptForTest(t *testing.T, ephemeralScalar, viewingSecret field.Element, plaintext PlaintextFields) []field.Element {
	t.Helper()
	curve := twistededwards.GetEdwardsCurve()

	var ephemeralPoint, recipientPub, shared twistededwards.PointAffine
	ephemeralPoint.ScalarMultiplication(&curve.Base, ephemeralScalar.BigInt())
	recipientPub.ScalarMultiplication(&curve.Base, viewingSecret.BigInt())
	shared.ScalarMultiplication(&recipientPub, ephemeralScalar.BigInt())

	key, nonce := kdf(shared)

	// The sealed ciphertext (plaintext + GCM tag) must fit exactly into the
	// fixed (MessageCiphertextLen-1)*bytesPerField body capacity, so the
	// plaintext itself is padded to capacity minus the tag length.
	const gcmTagLen = 16
	bodyCapacity := (MessageCiphertextLen - 1) * bytesPerField

	plainBytes := make([]byte, 0, NumPlaintextFields*bytesPerField)
	for _, f := range plaintext {
		b := f.Bytes()
		plainBytes = append(plainBytes, b[1:]...)
	}
	for len(plainBytes) < bodyCapacity-gcmTagLen {
		plainBytes = append(plainBytes, 0)
	}

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	gcm, err := cipher.NewGCM(block)
	require.NoError(t, err)
	sealed := gcm.Seal(nil, nonce, plainBytes, nil)

	fields := make([]field.Element, 0, MessageCiphertextLen)
	fields = append(fields, field.FromRaw(ephemeralPoint.X))
	for i := 0; i < (MessageCiphertextLen - 1); i++ {
		start := i * bytesPerField
		end := start + bytesPerField
		var chunk [bytesPerField + 1]byte // +1 for the reserved high byte
		if start < len(sealed) {
			stop := end
			if stop > len(sealed) {
				stop = len(sealed)
			}
			copy(chunk[1:], sealed[start:stop])
		}
		fields = append(fields, field.SetBytes(chunk[:]))
	}
	return fields
}

func TestDecryptRoundTrip(t *testing.T) {
	ephemeralScalar := field.FromUint64(777)
	viewingSecret := field.FromUint64(555)
	plaintext := PlaintextFields{
		field.Zero(), field.Zero(),
		field.FromUint64(10), field.FromUint64(20),
		field.FromUint64(1_000_000), field.FromUint64(2_000_000),
		field.FromUint64(1),
	}

	body := encryptForTest(t, ephemeralScalar, viewingSecret, plaintext)
	require.Len(t, body, MessageCiphertextLen)

	got, ok, err := Decrypt(body, viewingSecret)
	require.NoError(t, err)
	require.True(t, ok)
	for i := range plaintext {
		assert.True(t, plaintext[i].Equal(got[i]), "field %d mismatch", i)
	}
}

func TestDecryptWithWrongSecretFails(t *testing.T) {
	ephemeralScalar := field.FromUint64(42)
	viewingSecret := field.FromUint64(99)
	wrongSecret := field.FromUint64(100)
	plaintext := PlaintextFields{}

	body := encryptForTest(t, ephemeralScalar, viewingSecret, plaintext)

	_, ok, err := Decrypt(body, wrongSecret)
	require.NoError(t, err)
	assert.False(t, ok, "decryption under the wrong secret must fail authentication, not panic")
}

func TestDecryptRejectsWrongBodyLength(t *testing.T) {
	_, _, err := Decrypt(make([]field.Element, 3), field.FromUint64(1))
	require.Error(t, err)
}
