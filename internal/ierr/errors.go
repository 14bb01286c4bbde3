package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrInternalServer = errors.New("internal server error")

	ErrMissingAPIKey    = errors.New("missing API key")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrInvalidAPIKey    = errors.New("invalid API key")

	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrStoreUnavailable = errors.New("rate limit store unavailable")

	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrUnknownSubscription = errors.New("unknown webhook subscription")
)
