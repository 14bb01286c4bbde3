package memstorage

import (
	"context"
	"sync"
)

// WebhookSecrets is a config-sourced subscription → shared-secret lookup.
type WebhookSecrets struct {
	mu      sync.RWMutex
	secrets map[string]string
}

func NewWebhookSecrets(secrets map[string]string) *WebhookSecrets {
	copied := make(map[string]string, len(secrets))
	for name, secret := range secrets {
		copied[name] = secret
	}
	return &WebhookSecrets{secrets: copied}
}

func (s *WebhookSecrets) SecretFor(ctx context.Context, subscription string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[subscription]
	return secret, ok, nil
}
