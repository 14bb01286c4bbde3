package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/auth"
	"github.com/origincert/partner-gateway/internal/handler/dto"
	"github.com/origincert/partner-gateway/internal/ierr"
	"github.com/origincert/partner-gateway/internal/metrics"
	"github.com/origincert/partner-gateway/internal/ratelimit"
)

const (
	apiKeyHeader = "X-API-Key"

	headerRateLimitLimit     = "X-RateLimit-Limit"
	headerRateLimitRemaining = "X-RateLimit-Remaining"
	headerRateLimitReset     = "X-RateLimit-Reset"
	headerRetryAfter         = "Retry-After"

	// partnerIDKey is where the verified partner identifier lands in the gin
	// context for downstream handlers.
	partnerIDKey = "partnerID"
	// decisionKey carries the admission decision for handlers that report
	// quota state (e.g. the quota endpoint).
	decisionKey = "rateLimitDecision"
)

// PartnerID returns the verified partner identifier set by the gateway
// middleware. The boolean is false on routes the middleware does not guard.
func PartnerID(c *gin.Context) (string, bool) {
	id, ok := c.Get(partnerIDKey)
	if !ok {
		return "", false
	}
	partnerID, ok := id.(string)
	return partnerID, ok
}

// Decision returns the admission decision recorded for this request.
func Decision(c *gin.Context) (ratelimit.Decision, bool) {
	v, ok := c.Get(decisionKey)
	if !ok {
		return ratelimit.Decision{}, false
	}
	d, ok := v.(ratelimit.Decision)
	return d, ok
}

// GatewayMiddleware authenticates the partner API key, enforces the
// per-partner quota and stamps quota headers on every admitted response.
// Unauthenticated callers get no quota headers: they have not earned a quota
// context yet. The protected handler's own failures pass through untouched.
func GatewayMiddleware(validator *auth.Validator, limiter *ratelimit.Limiter, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("GatewayMiddleware")
	return func(c *gin.Context) {
		partnerID, err := validator.Authenticate(c.Request.Context(), c.GetHeader(apiKeyHeader))
		if err != nil {
			if errors.Is(err, ierr.ErrInternalServer) {
				metrics.GatewayRequests.WithLabelValues("store_error").Inc()
				log.Error("Key validation failed on registry error", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIErrorResponse{
					Error: "Internal server error during API key validation",
					Code:  "INTERNAL_ERROR",
				})
				return
			}
			metrics.GatewayRequests.WithLabelValues("unauthorized").Inc()
			log.Debug("Request rejected by key validator", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIErrorResponse{
				Error: authErrorMessage(err),
				Code:  "UNAUTHORIZED",
			})
			return
		}

		decision, err := limiter.Check(c.Request.Context(), partnerID)
		if err != nil {
			metrics.GatewayRequests.WithLabelValues("store_error").Inc()
			log.Error("Rate limit check failed", zap.String("partner_id", partnerID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.APIErrorResponse{
				Error: "Rate limit state temporarily unavailable",
				Code:  "SERVICE_UNAVAILABLE",
			})
			return
		}

		setQuotaHeaders(c, decision)

		if !decision.Allowed {
			metrics.GatewayRequests.WithLabelValues("rate_limited").Inc()
			retryAfter := decision.RetryAfter(time.Now())
			c.Header(headerRetryAfter, strconv.Itoa(retryAfter))
			log.Info("Request rejected by rate limiter",
				zap.String("partner_id", partnerID),
				zap.Time("reset_at", decision.ResetAt),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.APIErrorResponse{
				Error:      "Rate limit exceeded",
				Code:       "RATE_LIMIT_EXCEEDED",
				RetryAfter: retryAfter,
			})
			return
		}

		metrics.GatewayRequests.WithLabelValues("admitted").Inc()
		c.Set(partnerIDKey, partnerID)
		c.Set(decisionKey, decision)
		c.Next()
	}
}

func setQuotaHeaders(c *gin.Context, d ratelimit.Decision) {
	c.Header(headerRateLimitLimit, strconv.Itoa(d.Limit))
	c.Header(headerRateLimitRemaining, strconv.Itoa(d.Remaining))
	c.Header(headerRateLimitReset, strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// authErrorMessage keeps 401 bodies to the two disclosure categories the
// caller needs for debugging: format problems and everything else. Registry
// lookup failures degrade to the generic message rather than hinting at
// near-valid keys.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, ierr.ErrMissingAPIKey):
		return ierr.ErrMissingAPIKey.Error()
	case errors.Is(err, ierr.ErrInvalidKeyFormat):
		return ierr.ErrInvalidKeyFormat.Error()
	default:
		return ierr.ErrInvalidAPIKey.Error()
	}
}
