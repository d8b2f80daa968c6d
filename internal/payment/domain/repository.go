package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Scope restricts reads to what the actor may see. Zero values mean no
// restriction on that axis; the service only builds scopes from the actor's
// role, never from request input.
type Scope struct {
	PayerID       int64
	CooperativeID int64
}

// TxnUpdate is the webhook-driven mutation of one gateway transaction.
type TxnUpdate struct {
	Status          string
	GatewayResponse datatypes.JSON
	FailureReason   *string
	ReceivedAt      time.Time
}

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id int64) (*Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Payment, error)
	MarkFailed(ctx context.Context, id int64, reason string, at time.Time) error
	SetGatewayResult(ctx context.Context, id int64, invoiceNumber *string, at time.Time) error
	SetStatus(ctx context.Context, id int64, status string, failureReason *string, paidAt *time.Time, at time.Time) (bool, error)
	Search(ctx context.Context, scope Scope, filter SearchFilter) ([]Payment, error)
	ListForCooperative(ctx context.Context, cooperativeID int64) ([]CooperativePayment, error)

	InsertTransaction(ctx context.Context, t *PaymentTransaction) (bool, error)
	FindTransactionByGatewayID(ctx context.Context, gatewayTransactionID string) (*PaymentTransaction, error)
	UpdateTransaction(ctx context.Context, t *PaymentTransaction) error
	ApplyWebhook(ctx context.Context, id int64, update TxnUpdate) error
}
