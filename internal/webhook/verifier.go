package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the lowercase hex HMAC-SHA256 of payload keyed with secret.
// This is the canonical signature webhook senders must supply.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid HMAC-SHA256 of payload under
// secret. The supplied signature is hex-decoded first; a malformed or
// wrong-length signature fails before any content comparison. The comparison
// itself is constant-time, so verification cost does not depend on where the
// first mismatched byte sits.
func Verify(payload []byte, signature, secret string) bool {
	supplied, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	if len(supplied) != len(expected) {
		return false
	}

	return hmac.Equal(supplied, expected)
}
