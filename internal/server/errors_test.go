package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	balancedomain "github.com/coopsuite/copay/internal/balance/domain"
	coopdomain "github.com/coopsuite/copay/internal/cooperative/domain"
	gatewaydomain "github.com/coopsuite/copay/internal/gateway/domain"
	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	paymenttypedomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{name: "unauthorized", err: ErrUnauthorized, status: http.StatusUnauthorized, typ: "unauthorized"},
		{name: "forbidden", err: ErrForbidden, status: http.StatusForbidden, typ: "forbidden"},
		{name: "payment forbidden", err: paymentdomain.ErrForbidden, status: http.StatusForbidden, typ: "forbidden"},
		{name: "suspended cooperative", err: coopdomain.ErrSuspended, status: http.StatusForbidden, typ: "forbidden"},
		{name: "duplicate code", err: paymenttypedomain.ErrDuplicateCode, status: http.StatusConflict, typ: "conflict"},
		{name: "settle incomplete payment", err: balancedomain.ErrPaymentNotCompleted, status: http.StatusConflict, typ: "conflict"},
		{name: "payment not found", err: paymentdomain.ErrNotFound, status: http.StatusNotFound, typ: "not_found"},
		{name: "record not found", err: gorm.ErrRecordNotFound, status: http.StatusNotFound, typ: "not_found"},
		{name: "gateway failed", err: paymentdomain.ErrGatewayFailed, status: http.StatusBadGateway, typ: "gateway_error"},
		{name: "gateway unavailable", err: gatewaydomain.ErrGatewayUnavailable, status: http.StatusBadGateway, typ: "gateway_error"},
		{name: "missing idempotency key", err: paymentdomain.ErrIdempotencyKeyRequired, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "invalid channel", err: paymentdomain.ErrInvalidChannel, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "invalid phone", err: gatewaydomain.ErrInvalidPhone, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "inactive payment type", err: paymenttypedomain.ErrInactive, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "amount mismatch", err: paymenttypedomain.ErrAmountMismatch, status: http.StatusBadRequest, typ: "validation_error"},
		{name: "unknown error", err: errors.New("boom"), status: http.StatusInternalServerError, typ: "internal_error"},
		{name: "wrapped sentinel", err: errors.Join(errors.New("ctx"), ErrForbidden), status: http.StatusForbidden, typ: "forbidden"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestMapErrorValidationPayload(t *testing.T) {
	status, payload := mapError(newValidationError("amount", "invalid_amount", "amount must be positive"))
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "amount", payload.Errors[0].Field)
	assert.Equal(t, "invalid_amount", payload.Errors[0].Code)
}

func TestErrorHandlingMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	engine.GET("/missing", func(c *gin.Context) {
		AbortWithError(c, paymentdomain.ErrNotFound)
	})
	engine.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("maps aborted error to status and body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/missing", nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body errorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "not_found", body.Error.Type)
	})

	t.Run("leaves successful responses alone", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		engine.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})
}
