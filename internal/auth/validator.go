package auth

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/origincert/partner-gateway/internal/domain/partner"
	"github.com/origincert/partner-gateway/internal/ierr"
)

var apiKeyPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// Validator authenticates raw X-API-Key header values against an injected
// partner registry. It holds no state of its own beyond the registry handle.
type Validator struct {
	registry partner.Registry
	logger   *zap.Logger
}

func NewValidator(registry partner.Registry, logger *zap.Logger) *Validator {
	return &Validator{
		registry: registry,
		logger:   logger.Named("KeyValidator"),
	}
}

// Authenticate checks the header value and returns the derived partner
// identifier. The format gate runs before any registry lookup so malformed
// keys from scanners never reach the backing store. Unrecognized keys and
// revoked keys produce the same error to avoid leaking registry contents.
func (v *Validator) Authenticate(ctx context.Context, headerValue string) (string, error) {
	if headerValue == "" {
		v.logger.Debug("API key header is missing")
		return "", ierr.ErrMissingAPIKey
	}

	if !apiKeyPattern.MatchString(headerValue) {
		v.logger.Warn("Invalid API key format received", zap.Int("key_length", len(headerValue)))
		return "", ierr.ErrInvalidKeyFormat
	}

	apiKey := strings.ToLower(headerValue)

	valid, err := v.registry.IsValidKey(ctx, apiKey)
	if err != nil {
		v.logger.Error("Registry lookup failed during key validation", zap.Error(err))
		return "", fmt.Errorf("%w: registry lookup: %v", ierr.ErrInternalServer, err)
	}
	if !valid {
		v.logger.Warn("Unrecognized API key", zap.String("partner_id", partner.DerivePartnerID(apiKey)))
		return "", ierr.ErrInvalidAPIKey
	}

	partnerID := partner.DerivePartnerID(apiKey)
	v.logger.Debug("API key validated", zap.String("partner_id", partnerID))
	return partnerID, nil
}
