package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/origincert/partner-gateway/internal/handler/dto"
	"github.com/origincert/partner-gateway/internal/ierr"
	"go.uber.org/zap"
)

// ErrorHandlerMiddleware maps errors attached to the gin context onto the
// structured error bodies of the API. Handlers report failures with c.Error
// and return; nothing in the gateway panics on malformed input.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.Error(err))

		status := http.StatusInternalServerError
		errResponse := dto.APIErrorResponse{
			Code:  "INTERNAL_ERROR",
			Error: "An unexpected error occurred.",
		}

		var ve validator.ValidationErrors

		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			errResponse.Code = "VALIDATION_ERROR"
			errResponse.Error = "Input validation failed."
			errResponse.Details = buildValidationErrors(ve)
		} else {
			switch {
			case errors.Is(err, ierr.ErrValidation):
				status = http.StatusBadRequest
				errResponse.Code = "VALIDATION_ERROR"
				errResponse.Error = err.Error()
			case errors.Is(err, ierr.ErrUnauthorized), errors.Is(err, ierr.ErrInvalidSignature):
				status = http.StatusUnauthorized
				errResponse.Code = "UNAUTHORIZED"
				errResponse.Error = err.Error()
			case errors.Is(err, ierr.ErrForbidden):
				status = http.StatusForbidden
				errResponse.Code = "FORBIDDEN"
				errResponse.Error = "Access denied."
			case errors.Is(err, ierr.ErrNotFound), errors.Is(err, ierr.ErrUnknownSubscription):
				status = http.StatusNotFound
				errResponse.Code = "NOT_FOUND"
				errResponse.Error = "The requested resource was not found."
			default:
				errResponse.Error = err.Error()
			}
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "hexadecimal":
		return fmt.Sprintf("Field '%s' must be a hexadecimal string", fe.Field())
	case "len":
		return fmt.Sprintf("Field '%s' must be exactly %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
