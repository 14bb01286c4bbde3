package memstorage

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// StaticRegistry is the config-sourced allow-list of partner keys. It is a
// read-through snapshot: keys are loaded once at startup and revocation means
// restarting with an updated list. Deployments that need online revocation
// use the Postgres-backed registry instead.
type StaticRegistry struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

func NewStaticRegistry(keys []string, logger *zap.Logger) *StaticRegistry {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[strings.ToLower(k)] = struct{}{}
	}
	logger.Named("StaticRegistry").Info("Loaded static partner key allow-list", zap.Int("count", len(set)))
	return &StaticRegistry{keys: set}
}

func (r *StaticRegistry) IsValidKey(ctx context.Context, apiKey string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.keys[apiKey]
	return ok, nil
}
