package server

import (
	"errors"
	"net/http"
	"strings"

	activitydomain "github.com/coopsuite/copay/internal/activity/domain"
	balancedomain "github.com/coopsuite/copay/internal/balance/domain"
	coopdomain "github.com/coopsuite/copay/internal/cooperative/domain"
	gatewaydomain "github.com/coopsuite/copay/internal/gateway/domain"
	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	paymenttypedomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, paymentdomain.ErrForbidden),
		errors.Is(err, coopdomain.ErrSuspended):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, paymenttypedomain.ErrDuplicateCode),
		errors.Is(err, balancedomain.ErrPaymentNotCompleted):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, paymentdomain.ErrGatewayFailed),
		errors.Is(err, gatewaydomain.ErrGatewayUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "gateway_error",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrIdempotencyKeyRequired),
		errors.Is(err, paymentdomain.ErrInvalidChannel),
		errors.Is(err, paymentdomain.ErrInvalidPaymentType),
		errors.Is(err, paymenttypedomain.ErrInvalidName),
		errors.Is(err, paymenttypedomain.ErrInvalidCode),
		errors.Is(err, paymenttypedomain.ErrInvalidAmount),
		errors.Is(err, paymenttypedomain.ErrInvalidAmountType),
		errors.Is(err, paymenttypedomain.ErrInvalidMinimum),
		errors.Is(err, paymenttypedomain.ErrAmountMismatch),
		errors.Is(err, paymenttypedomain.ErrAmountOutOfRange),
		errors.Is(err, paymenttypedomain.ErrInactive),
		errors.Is(err, paymenttypedomain.ErrInvalidCooperative),
		errors.Is(err, paymenttypedomain.ErrInvalidID),
		errors.Is(err, gatewaydomain.ErrInvalidPhone),
		errors.Is(err, gatewaydomain.ErrUnsupportedChannel),
		errors.Is(err, activitydomain.ErrInvalidAction),
		errors.Is(err, activitydomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrTransactionNotFound),
		errors.Is(err, paymenttypedomain.ErrNotFound),
		errors.Is(err, coopdomain.ErrNotFound),
		errors.Is(err, balancedomain.ErrPaymentNotFound),
		errors.Is(err, balancedomain.ErrBalanceNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if code == "invalid_request" {
		return "request"
	}
	return ""
}
