package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/handler/dto"
	"github.com/origincert/partner-gateway/internal/metrics"
	"github.com/origincert/partner-gateway/internal/webhook"
)

// WebhookHandler receives inbound webhook deliveries and verifies their
// HMAC signature before acknowledging. It sits outside the gateway chain:
// webhook senders authenticate with the shared subscription secret, not with
// a partner API key.
type WebhookHandler struct {
	secrets         webhook.SecretSource
	signatureHeader string
	logger          *zap.Logger
}

func NewWebhookHandler(secrets webhook.SecretSource, signatureHeader string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		secrets:         secrets,
		signatureHeader: signatureHeader,
		logger:          logger.Named("WebhookHandler"),
	}
}

func (h *WebhookHandler) Receive(c *gin.Context) {
	subscription := c.Param("subscription")

	secret, found, err := h.secrets.SecretFor(c.Request.Context(), subscription)
	if err != nil {
		h.logger.Error("Failed to resolve webhook secret", zap.String("subscription", subscription), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.APIErrorResponse{
			Error: "Internal server error during webhook verification",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	if !found {
		h.logger.Warn("Webhook for unknown subscription", zap.String("subscription", subscription))
		c.AbortWithStatusJSON(http.StatusNotFound, dto.APIErrorResponse{
			Error: "Unknown webhook subscription",
			Code:  "NOT_FOUND",
		})
		return
	}

	// The raw body is signed as-is; no normalization before verification.
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.String("subscription", subscription), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.APIErrorResponse{
			Error: "Unreadable request body",
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	signature := c.GetHeader(h.signatureHeader)
	if !webhook.Verify(payload, signature, secret) {
		metrics.WebhookVerifications.WithLabelValues("invalid").Inc()
		h.logger.Warn("Webhook signature verification failed",
			zap.String("subscription", subscription),
			zap.Int("payload_bytes", len(payload)),
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.APIErrorResponse{
			Error: "Invalid webhook signature",
			Code:  "UNAUTHORIZED",
		})
		return
	}

	metrics.WebhookVerifications.WithLabelValues("valid").Inc()
	h.logger.Info("Webhook accepted", zap.String("subscription", subscription), zap.Int("payload_bytes", len(payload)))

	c.JSON(http.StatusAccepted, dto.WebhookAcceptedResponse{
		Subscription: subscription,
		Status:       "accepted",
	})
}
