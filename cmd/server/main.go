package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/origincert/partner-gateway/internal/auth"
	"github.com/origincert/partner-gateway/internal/config"
	"github.com/origincert/partner-gateway/internal/domain/partner"
	"github.com/origincert/partner-gateway/internal/handler"
	"github.com/origincert/partner-gateway/internal/handler/middleware"
	"github.com/origincert/partner-gateway/internal/ierr"
	"github.com/origincert/partner-gateway/internal/ratelimit"
	"github.com/origincert/partner-gateway/internal/storage/memstorage"
	"github.com/origincert/partner-gateway/internal/storage/postgres"
	redisstorage "github.com/origincert/partner-gateway/internal/storage/redis"
	"github.com/origincert/partner-gateway/internal/tasks"
	"github.com/origincert/partner-gateway/internal/worker"
	"github.com/origincert/partner-gateway/pkg/logger"
)

func main() {
	configPath := flag.String("config", "./configs/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	sugarLogger := appLogger.Sugar()

	sugarLogger.Info("Starting partner gateway...")
	sugarLogger.Infof("Log level set to: %s", cfg.Log.Level)

	appCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisstorage.NewRedisClient(appCtx, &cfg.Redis, appLogger)
	if err != nil {
		sugarLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	var dbPool *pgxpool.Pool
	var registry partner.Registry

	switch cfg.Registry.Driver {
	case "postgres":
		dbPool, err = postgres.NewPgxPool(appCtx, &cfg.Database, appLogger)
		if err != nil {
			sugarLogger.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbPool.Close()
		registry = postgres.NewPartnerKeyRepository(dbPool, appLogger)
	case "static":
		registry = memstorage.NewStaticRegistry(cfg.Registry.Keys, appLogger)
	default:
		sugarLogger.Fatalf("Unknown registry driver: %q", cfg.Registry.Driver)
	}

	var store ratelimit.Store
	var usageSource tasks.UsageSource

	switch cfg.RateLimit.Driver {
	case "redis":
		redisStore := ratelimit.NewRedisStore(redisClient)
		store = redisStore
		usageSource = redisStore
	case "memory":
		sugarLogger.Warn("Using in-memory rate limit store; quotas are per-instance, do not scale horizontally with this driver")
		memStore := ratelimit.NewMemoryStore(nil)
		store = memStore
		usageSource = memStore
	default:
		sugarLogger.Fatalf("Unknown rate limit driver: %q", cfg.RateLimit.Driver)
	}

	validator := auth.NewValidator(registry, appLogger)
	limiter := ratelimit.NewLimiter(store, &cfg.RateLimit, appLogger)

	healthHandler := handler.NewHealthHandler(dbPool, redisClient, appLogger)
	partnerHandler := handler.NewPartnerHandler(appLogger)
	webhookSecrets := memstorage.NewWebhookSecrets(cfg.Webhook.Subscriptions)
	webhookHandler := handler.NewWebhookHandler(webhookSecrets, cfg.Webhook.SignatureHeader, appLogger)

	gatewayMiddleware := middleware.GatewayMiddleware(validator, limiter, appLogger)
	errorMiddleware := middleware.ErrorHandlerMiddleware(appLogger)

	router := gin.New()
	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logMsg := "Panic recovered"
		if err, ok := recovered.(string); ok {
			logMsg = fmt.Sprintf("%s: %s", logMsg, err)
		} else if err, ok := recovered.(error); ok {
			logMsg = fmt.Sprintf("%s: %v", logMsg, err)
		}
		appLogger.Error(logMsg, zap.Stack("stack"))

		_ = c.Error(ierr.ErrInternalServer)
		c.Abort()
	}))

	corsConfig := cors.Config{
		AllowOrigins: []string{"https://portal.origincert.example"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-API-Key",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
	router.Use(errorMiddleware)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/:subscription", webhookHandler.Receive)

	apiV1 := router.Group("/api/v1")
	apiV1.Use(gatewayMiddleware)
	{
		partnerRoutes := apiV1.Group("/partner")
		{
			partnerRoutes.GET("/quota", partnerHandler.Quota)
		}
	}

	g, groupCtx := errgroup.WithContext(appCtx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g.Go(func() error {
		sugarLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugarLogger.Errorf("HTTP server ListenAndServe error: %v", err)
			return fmt.Errorf("http server failed: %w", err)
		}
		sugarLogger.Info("HTTP server stopped listening.")
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		sugarLogger.Info("Shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownPeriod)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			sugarLogger.Errorf("HTTP server graceful shutdown failed: %v", err)
			return fmt.Errorf("http server shutdown error: %w", err)
		}
		sugarLogger.Info("HTTP server shutdown complete.")
		return nil
	})

	if cfg.Worker.Enabled {
		g.Go(func() error {
			if err := worker.RunWorkers(groupCtx, cfg, usageSource, appLogger); err != nil {
				sugarLogger.Error("Asynq worker failed", zap.Error(err))
				return fmt.Errorf("asynq worker error: %w", err)
			}
			sugarLogger.Info("Asynq workers finished gracefully.")
			return nil
		})
	}

	sugarLogger.Info("Gateway started. Waiting for interrupt signal (Ctrl+C) or component error...")

	waitErr := g.Wait()

	sugarLogger.Info("Shutdown sequence finished.")

	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) {
			sugarLogger.Info("Shutdown reason: Context canceled (likely due to OS signal).")
		} else if errors.Is(waitErr, http.ErrServerClosed) {
			sugarLogger.Info("Shutdown reason: HTTP server closed normally.")
		} else {
			sugarLogger.Errorf("Gateway shutdown finished with unexpected error: %v", waitErr)
		}
	} else {
		sugarLogger.Info("Gateway shutdown successfully (all components finished without errors).")
	}

	sugarLogger.Info("Gateway exiting now.")
}
