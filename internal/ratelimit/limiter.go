package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/config"
	"github.com/origincert/partner-gateway/internal/ierr"
)

// Outcome is the result of one atomic check-and-increment against a Store.
// Count is the number of admissions in the current window after the call;
// a denied call never increments it.
type Outcome struct {
	Allowed bool
	Count   int
	ResetAt time.Time
}

// Store is the counter capability the fixed-window algorithm runs on. Take
// must be atomic for a given key: two concurrent calls with one admission
// slot left must never both be allowed.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Outcome, error)
}

// Decision is the limiter verdict handed to the gateway middleware.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns the whole seconds until the window resets, never below 1
// so a Retry-After header is always meaningful.
func (d Decision) RetryAfter(now time.Time) int {
	secs := int(d.ResetAt.Sub(now).Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Limiter enforces a fixed window of Requests admissions per Window for each
// partner. All state lives in the Store so multiple gateway instances backed
// by the same store share one global quota.
type Limiter struct {
	store        Store
	requests     int
	window       time.Duration
	failOpen     bool
	storeTimeout time.Duration
	logger       *zap.Logger
}

func NewLimiter(store Store, cfg *config.RateLimitConfig, logger *zap.Logger) *Limiter {
	return &Limiter{
		store:        store,
		requests:     cfg.Requests,
		window:       cfg.Window,
		failOpen:     cfg.FailOpen,
		storeTimeout: cfg.StoreTimeout,
		logger:       logger.Named("RateLimiter"),
	}
}

// Limit returns the configured requests-per-window ceiling.
func (l *Limiter) Limit() int {
	return l.requests
}

// Check decides admission for one request by partnerID. Store round trips are
// bounded by the configured timeout; on store failure the verdict follows the
// configured policy: fail-open admits with a synthetic full-window decision,
// fail-closed (the default) surfaces ErrStoreUnavailable.
func (l *Limiter) Check(ctx context.Context, partnerID string) (Decision, error) {
	storeCtx, cancel := context.WithTimeout(ctx, l.storeTimeout)
	defer cancel()

	outcome, err := l.store.Take(storeCtx, counterKey(partnerID), l.requests, l.window)
	if err != nil {
		if l.failOpen {
			l.logger.Warn("Counter store unavailable, admitting per fail-open policy",
				zap.String("partner_id", partnerID), zap.Error(err))
			return Decision{
				Allowed:   true,
				Limit:     l.requests,
				Remaining: l.requests - 1,
				ResetAt:   time.Now().Add(l.window),
			}, nil
		}
		l.logger.Error("Counter store unavailable, denying per fail-closed policy",
			zap.String("partner_id", partnerID), zap.Error(err))
		return Decision{}, fmt.Errorf("%w: %v", ierr.ErrStoreUnavailable, err)
	}

	remaining := l.requests - outcome.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   outcome.Allowed,
		Limit:     l.requests,
		Remaining: remaining,
		ResetAt:   outcome.ResetAt,
	}, nil
}

func counterKey(partnerID string) string {
	return "ratelimit:" + partnerID
}
