package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/handler/dto"
	"github.com/origincert/partner-gateway/internal/handler/middleware"
	"github.com/origincert/partner-gateway/internal/ierr"
)

// PartnerHandler serves the gated partner-facing endpoints. Business handlers
// (certificate generation, bulk import and friends) mount behind the same
// middleware chain and read the partner identifier the same way.
type PartnerHandler struct {
	logger *zap.Logger
}

func NewPartnerHandler(logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{
		logger: logger.Named("PartnerHandler"),
	}
}

// Quota echoes the caller's identity and current window state.
func (h *PartnerHandler) Quota(c *gin.Context) {
	partnerID, ok := middleware.PartnerID(c)
	if !ok {
		h.logger.Error("Quota endpoint reached without a verified partner id")
		_ = c.Error(ierr.ErrInternalServer)
		return
	}

	resp := dto.QuotaResponse{PartnerID: partnerID}
	if decision, ok := middleware.Decision(c); ok {
		resp.Limit = decision.Limit
		resp.Remaining = decision.Remaining
		resp.ResetAt = decision.ResetAt.Unix()
	}

	c.JSON(http.StatusOK, resp)
}
