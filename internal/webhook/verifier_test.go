package webhook

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_AcceptsValidSignature(t *testing.T) {
	payload := []byte(`{"id":1}`)
	secret := "topsecret"

	sig := Sign(payload, secret)

	assert.True(t, Verify(payload, sig, secret))
}

func TestVerify_RejectsSignatureFromOtherSecret(t *testing.T) {
	payload := []byte(`{"id":1}`)

	sig := Sign(payload, "othersecret")

	assert.False(t, Verify(payload, sig, "topsecret"))
}

func TestVerify_AnySingleByteFlipFails(t *testing.T) {
	payload := []byte(`{"event":"certificate.issued","id":42}`)
	secret := "whsec_8f0c2a"
	sig := Sign(payload, secret)

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)

	for i := range raw {
		flipped := make([]byte, len(raw))
		copy(flipped, raw)
		flipped[i] ^= 0x01
		assert.False(t, Verify(payload, hex.EncodeToString(flipped), secret),
			"flipping signature byte %d must fail verification", i)
	}

	for i := range payload {
		mutated := make([]byte, len(payload))
		copy(mutated, payload)
		mutated[i] ^= 0x01
		assert.False(t, Verify(mutated, sig, secret),
			"flipping payload byte %d must fail verification", i)
	}
}

func TestVerify_WrongLengthShortCircuits(t *testing.T) {
	payload := []byte(`{"id":1}`)
	secret := "topsecret"

	// Valid hex, wrong decoded length: must fail before content comparison.
	assert.False(t, Verify(payload, "deadbeef", secret))
	assert.False(t, Verify(payload, Sign(payload, secret)+"00", secret))
}

func TestVerify_MalformedHexFails(t *testing.T) {
	payload := []byte(`{"id":1}`)

	assert.False(t, Verify(payload, "not-hex-at-all", "topsecret"))
	assert.False(t, Verify(payload, "", "topsecret"))
}

func TestSign_LowercaseHexOutput(t *testing.T) {
	sig := Sign([]byte("payload"), "secret")

	assert.Len(t, sig, 64)
	assert.Regexp(t, `^[a-f0-9]{64}$`, sig)
}
