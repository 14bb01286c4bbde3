package partner

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrKeyNotFound = errors.New("partner key not found or disabled")

// Registry answers whether an API key is currently valid. Implementations
// must treat revoked keys the same as unknown ones.
type Registry interface {
	IsValidKey(ctx context.Context, apiKey string) (bool, error)
}

// Repository is the persistence surface for issued partner keys. Only the
// administrative path writes; the request path goes through Registry.
type Repository interface {
	Registry
	Create(ctx context.Context, key *Key) (uuid.UUID, error)
	Disable(ctx context.Context, id uuid.UUID) error
}
