package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const randomSeedBytes = 32

// GenerateAPIKey produces a new 64-character lowercase hex credential for the
// given partner. The digest mixes 256 bits of crypto/rand output with the
// partner identifier and the current timestamp, so repeated calls for the
// same partner never collide and the raw random material is never exposed.
func GenerateAPIKey(partnerID string) (string, error) {
	seed := make([]byte, randomSeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("failed to read random seed: %w", err)
	}

	h := sha256.New()
	h.Write(seed)
	h.Write([]byte(partnerID))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))

	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashAPIKey returns the hex SHA-256 of a full key, the form the registry
// persists instead of the raw credential.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
