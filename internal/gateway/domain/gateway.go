package domain

import (
	"context"
	"errors"
	"net/http"
	"time"
)

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

var (
	ErrProviderNotFound   = errors.New("provider_not_found")
	ErrUnsupportedChannel = errors.New("unsupported_channel")
	ErrInvalidPhone       = errors.New("invalid_phone_number")
	ErrInvalidConfig      = errors.New("invalid_gateway_config")
	ErrInvalidSignature   = errors.New("invalid_signature")
	ErrInvalidPayload     = errors.New("invalid_payload")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
)

// Config carries the credentials and endpoints of one gateway account.
type Config struct {
	BaseURL       string
	APIKey        string
	SecretKey     string
	WebhookSecret string
	CallbackURL   string
	Timeout       time.Duration
}

// InitiateRequest asks the gateway to start collecting one payment.
// Reference is the merchant-side transaction id and must be unique per
// attempt; the gateway echoes it back in callbacks.
type InitiateRequest struct {
	Reference   string
	Amount      int64
	Currency    string
	Channel     string
	PhoneNumber string
	Description string
}

type InitiateResult struct {
	GatewayTransactionID string
	InvoiceNumber        string
	PaymentURL           string
	Status               TransactionStatus
	Raw                  []byte
}

// Client is the outbound contract every gateway integration satisfies.
type Client interface {
	Provider() string
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	GetStatus(ctx context.Context, gatewayTransactionID string) (TransactionStatus, error)
	VerifyCallback(payload []byte, headers http.Header) error
}
