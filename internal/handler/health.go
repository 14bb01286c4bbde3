package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type HealthHandler struct {
	db     *pgxpool.Pool
	redis  *redis.Client
	logger *zap.Logger
}

// NewHealthHandler reports gateway dependency health. db is nil when the
// static registry driver is active; it is then excluded from the check.
func NewHealthHandler(db *pgxpool.Pool, redis *redis.Client, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redis,
		logger: logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	deps := gin.H{}
	healthy := true

	if h.db != nil {
		dbStatus := "ok"
		if err := h.db.Ping(c.Request.Context()); err != nil {
			dbStatus = "error"
			healthy = false
			h.logger.Error("Health check: PostgreSQL ping failed", zap.Error(err))
		}
		deps["database"] = dbStatus
	}

	redisStatus := "ok"
	if _, err := h.redis.Ping(c.Request.Context()).Result(); err != nil {
		redisStatus = "error"
		healthy = false
		h.logger.Error("Health check: Redis ping failed", zap.Error(err))
	}
	deps["redis"] = redisStatus

	status := http.StatusOK
	statusText := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       statusText,
		"dependencies": deps,
	})
}
