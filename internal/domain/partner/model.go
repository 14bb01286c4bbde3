package partner

import (
	"time"

	"github.com/google/uuid"
)

// Key is the registry record behind one partner credential. The raw key is
// never stored; only its SHA-256 hash plus the derived partner identifier.
type Key struct {
	ID         uuid.UUID  `db:"id"`
	KeyHash    string     `db:"key_hash"`
	PartnerID  string     `db:"partner_id"`
	IsEnabled  bool       `db:"is_enabled"`
	CreatedAt  time.Time  `db:"created_at"`
	LastUsedAt *time.Time `db:"last_used_at"`
}

const (
	// APIKeyLength is the canonical credential length: 256 bits of entropy
	// rendered as lowercase hex.
	APIKeyLength = 64

	// PartnerIDLength is the number of leading key characters that form the
	// stable partner identifier. The registry is responsible for avoiding
	// prefix collisions between issued keys.
	PartnerIDLength = 8
)

// DerivePartnerID returns the stable partner identifier for a canonical
// (lowercase hex) API key. Callers must validate the key format first.
func DerivePartnerID(apiKey string) string {
	return apiKey[:PartnerIDLength]
}
