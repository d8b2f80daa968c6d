package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound               = errors.New("payment_not_found")
	ErrTransactionNotFound    = errors.New("payment_transaction_not_found")
	ErrIdempotencyKeyRequired = errors.New("idempotency_key_required")
	ErrInvalidChannel         = errors.New("invalid_channel")
	ErrInvalidPaymentType     = errors.New("invalid_payment_type")
	ErrForbidden              = errors.New("forbidden")
	ErrGatewayFailed          = errors.New("gateway_initiation_failed")
)

// InitiateRequest starts one payment. IdempotencyKey is mandatory; retried
// submissions with the same key return the original payment untouched.
// CooperativeID is optional: when zero the payment goes to the cooperative
// that owns the payment type, and when set it must match that owner.
type InitiateRequest struct {
	PaymentTypeID  int64  `json:"payment_type_id" binding:"required"`
	CooperativeID  int64  `json:"cooperative_id"`
	BaseAmount     int64  `json:"amount"`
	Channel        string `json:"channel" binding:"required"`
	PhoneNumber    string `json:"phone_number"`
	IdempotencyKey string `json:"idempotency_key" binding:"required"`
	Description    string `json:"description"`
}

// InitiateResponse echoes the persisted payment plus whatever the gateway
// handed back for the payer to act on.
type InitiateResponse struct {
	Payment    Payment `json:"payment"`
	PaymentURL string  `json:"payment_url,omitempty"`
	Duplicate  bool    `json:"duplicate"`
}

// SearchFilter compiles to SQL predicates; role scoping is applied on top
// of it and can never be widened by the caller.
type SearchFilter struct {
	Status    string
	Channel   string
	MinAmount int64
	MaxAmount int64
	From      *time.Time
	To        *time.Time
	Limit     int
}

// CooperativePayment is the admin projection: a payment joined with its
// latest gateway transaction.
type CooperativePayment struct {
	Payment
	LatestTransactionID     *int64  `json:"latest_transaction_id,omitempty"`
	LatestTransactionStatus *string `json:"latest_transaction_status,omitempty"`
	LatestGatewayID         *string `json:"latest_gateway_transaction_id,omitempty"`
}

type Service interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error)
	GetByID(ctx context.Context, id int64) (*Payment, error)
	Search(ctx context.Context, filter SearchFilter) ([]Payment, error)
	ListForCooperative(ctx context.Context) ([]CooperativePayment, error)
}
