package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/config"
	"github.com/origincert/partner-gateway/internal/ierr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(store Store, requests int, window time.Duration) *Limiter {
	cfg := &config.RateLimitConfig{
		Requests:     requests,
		Window:       window,
		StoreTimeout: time.Second,
	}
	return NewLimiter(store, cfg, zap.NewNop())
}

func TestCheck_AdmitsUpToLimitThenDenies(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), 100, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		decision, err := limiter.Check(ctx, "aaaaaaaa")
		require.NoError(t, err)
		require.True(t, decision.Allowed, "request %d should be admitted", i)
		assert.Equal(t, 100-i, decision.Remaining, "remaining after request %d", i)
		assert.Equal(t, 100, decision.Limit)
	}

	decision, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "request 101 must be denied")
	assert.Equal(t, 0, decision.Remaining)
}

func TestCheck_DenyDoesNotIncrement(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.Check(ctx, "aaaaaaaa")
		require.NoError(t, err)
	}

	for i := 0; i < 10; i++ {
		decision, err := limiter.Check(ctx, "aaaaaaaa")
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, 0, decision.Remaining, "remaining must stay at 0, never go negative")
	}
}

func TestCheck_WindowResets(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), 100, time.Minute)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := limiter.Check(ctx, "aaaaaaaa")
		require.NoError(t, err)
	}
	denied, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	clock.Advance(61 * time.Second)

	decision, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "first request after resetAt must be admitted")
	assert.Equal(t, 99, decision.Remaining, "counter restarts with the new window")
}

func TestCheck_ResetAtStableWithinWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), 10, time.Minute)
	ctx := context.Background()

	first, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)

	clock.Advance(10 * time.Second)

	second, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, first.ResetAt, second.ResetAt, "resetAt must not slide within a window")
}

func TestCheck_PartnersAreIsolated(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), 1, time.Minute)
	ctx := context.Background()

	first, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	require.True(t, first.Allowed)

	denied, err := limiter.Check(ctx, "aaaaaaaa")
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	other, err := limiter.Check(ctx, "bbbbbbbb")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "one partner exhausting its quota must not affect another")
}

func TestCheck_ConcurrentAdmissionsNeverExceedLimit(t *testing.T) {
	const limit = 50
	const attempts = 200

	clock := newFakeClock()
	limiter := newTestLimiter(NewMemoryStore(clock.Now), limit, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Check(context.Background(), "aaaaaaaa")
			if err != nil {
				t.Error(err)
				return
			}
			if decision.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, admitted, "concurrent requests must never over-admit")
}

type failingStore struct{}

func (failingStore) Take(ctx context.Context, key string, limit int, window time.Duration) (Outcome, error) {
	return Outcome{}, errors.New("store down")
}

func TestCheck_FailClosedByDefault(t *testing.T) {
	limiter := newTestLimiter(failingStore{}, 100, time.Minute)

	_, err := limiter.Check(context.Background(), "aaaaaaaa")

	require.ErrorIs(t, err, ierr.ErrStoreUnavailable)
}

func TestCheck_FailOpenWhenConfigured(t *testing.T) {
	cfg := &config.RateLimitConfig{
		Requests:     100,
		Window:       time.Minute,
		FailOpen:     true,
		StoreTimeout: time.Second,
	}
	limiter := NewLimiter(failingStore{}, cfg, zap.NewNop())

	decision, err := limiter.Check(context.Background(), "aaaaaaaa")

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 99, decision.Remaining)
}

func TestRetryAfter_NeverBelowOne(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	d := Decision{ResetAt: now.Add(30 * time.Second)}
	assert.Equal(t, 30, d.RetryAfter(now))

	expired := Decision{ResetAt: now.Add(-time.Second)}
	assert.Equal(t, 1, expired.RetryAfter(now))
}
