package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowRecord struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps window counters in a mutex-guarded map. It is correct for
// a single gateway instance only: every process gets its own counters, so the
// effective global quota multiplies by the instance count. Deployments that
// scale horizontally must use the Redis store instead.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*windowRecord
	clock   func() time.Time
}

// NewMemoryStore builds an in-process store. clock may be nil, in which case
// time.Now is used; tests inject a fake clock to drive window expiry.
func NewMemoryStore(clock func() time.Time) *MemoryStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		windows: make(map[string]*windowRecord),
		clock:   clock,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Outcome, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.windows[key]
	if !ok || !now.Before(rec.resetAt) {
		rec = &windowRecord{count: 0, resetAt: now.Add(window)}
		s.windows[key] = rec
	}

	if rec.count >= limit {
		return Outcome{Allowed: false, Count: rec.count, ResetAt: rec.resetAt}, nil
	}

	rec.count++
	return Outcome{Allowed: true, Count: rec.count, ResetAt: rec.resetAt}, nil
}

// Usage reports the live admission count per counter key. Expired windows are
// skipped so the snapshot worker does not resurrect stale partners.
func (s *MemoryStore) Usage(ctx context.Context) (map[string]int64, error) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	usage := make(map[string]int64, len(s.windows))
	for key, rec := range s.windows {
		if now.Before(rec.resetAt) {
			usage[key] = int64(rec.count)
		}
	}
	return usage, nil
}
