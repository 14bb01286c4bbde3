package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/auth"
	"github.com/origincert/partner-gateway/internal/config"
	"github.com/origincert/partner-gateway/internal/ratelimit"
)

type stubRegistry struct {
	valid map[string]struct{}
}

func (r *stubRegistry) IsValidKey(ctx context.Context, apiKey string) (bool, error) {
	_, ok := r.valid[apiKey]
	return ok, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func partnerKey() string {
	return strings.Repeat("a", 64)
}

func newGatedRouter(t *testing.T, requests int) (*gin.Engine, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := &stubRegistry{valid: map[string]struct{}{partnerKey(): {}}}
	validator := auth.NewValidator(registry, zap.NewNop())

	clock := &testClock{now: time.Now()}
	cfg := &config.RateLimitConfig{
		Requests:     requests,
		Window:       time.Minute,
		StoreTimeout: time.Second,
	}
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(clock.Now), cfg, zap.NewNop())

	router := gin.New()
	router.GET("/gated", GatewayMiddleware(validator, limiter, zap.NewNop()), func(c *gin.Context) {
		partnerID, ok := PartnerID(c)
		require.True(t, ok, "handler must receive the verified partner id")
		c.JSON(http.StatusOK, gin.H{"partner_id": partnerID})
	})

	return router, clock
}

func doRequest(router *gin.Engine, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/gated", nil)
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGateway_AdmitsAndCountsDownQuota(t *testing.T) {
	router, _ := newGatedRouter(t, 100)

	for i := 1; i <= 100; i++ {
		w := doRequest(router, partnerKey())

		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(100-i), w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, partnerKey()[:8], body["partner_id"])
	}

	w := doRequest(router, partnerKey())
	require.Equal(t, http.StatusTooManyRequests, w.Code, "request 101 must be rejected")

	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)

	var body struct {
		Error      string `json:"error"`
		Code       string `json:"code"`
		RetryAfter int    `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Rate limit exceeded", body.Error)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Code)
	assert.Greater(t, body.RetryAfter, 0)
}

func TestGateway_QuotaRestoresAfterWindowReset(t *testing.T) {
	router, clock := newGatedRouter(t, 2)

	require.Equal(t, http.StatusOK, doRequest(router, partnerKey()).Code)
	require.Equal(t, http.StatusOK, doRequest(router, partnerKey()).Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, partnerKey()).Code)

	clock.Advance(61 * time.Second)

	w := doRequest(router, partnerKey())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}

func TestGateway_RejectsMalformedKey(t *testing.T) {
	router, _ := newGatedRouter(t, 100)

	w := doRequest(router, "short")

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, "invalid API key format", body.Error)
}

func TestGateway_RejectsMissingAndUnknownKeys(t *testing.T) {
	router, _ := newGatedRouter(t, 100)

	w := doRequest(router, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, strings.Repeat("b", 64))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "UNAUTHORIZED", body.Code)
	assert.Equal(t, "invalid API key", body.Error)
}

func TestGateway_NoQuotaHeadersOnUnauthorized(t *testing.T) {
	router, _ := newGatedRouter(t, 100)

	w := doRequest(router, "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"), "unauthenticated callers have no quota context")
	assert.Empty(t, w.Header().Get("X-RateLimit-Remaining"))
	assert.Empty(t, w.Header().Get("X-RateLimit-Reset"))
}

func TestGateway_UnknownKeyConsumesNoQuota(t *testing.T) {
	router, _ := newGatedRouter(t, 2)

	for i := 0; i < 5; i++ {
		doRequest(router, strings.Repeat("b", 64))
	}

	w := doRequest(router, partnerKey())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
}
