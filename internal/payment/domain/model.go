package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	TxnStatusPending   = "pending"
	TxnStatusCompleted = "completed"
	TxnStatusFailed    = "failed"
	TxnStatusCancelled = "cancelled"
)

// Payment is the member-facing record of one obligation payment attempt.
// Amount is always BaseAmount plus Fee; the gateway collects the total and
// settlement later splits it back.
type Payment struct {
	ID                        int64      `json:"id" gorm:"primaryKey"`
	CooperativeID             int64      `json:"cooperative_id" gorm:"column:cooperative_id;not null;index"`
	PaymentTypeID             int64      `json:"payment_type_id" gorm:"not null"`
	PayerID                   int64      `json:"payer_id" gorm:"not null;index"`
	BaseAmount                int64      `json:"base_amount" gorm:"not null"`
	Fee                       int64      `json:"fee" gorm:"not null"`
	Amount                    int64      `json:"amount" gorm:"not null"`
	Currency                  string     `json:"currency" gorm:"type:text;not null"`
	Channel                   string     `json:"channel" gorm:"type:text;not null"`
	PhoneNumber               *string    `json:"phone_number,omitempty" gorm:"type:text"`
	Status                    string     `json:"status" gorm:"type:text;not null"`
	IdempotencyKey            string     `json:"idempotency_key" gorm:"type:text;not null;uniqueIndex"`
	PaymentReference          string     `json:"payment_reference" gorm:"type:text"`
	InvoiceNumber             *string    `json:"invoice_number,omitempty" gorm:"type:text"`
	CooperativeBalanceUpdated bool       `json:"cooperative_balance_updated" gorm:"not null;default:false"`
	FeeBalanceUpdated         bool       `json:"fee_balance_updated" gorm:"not null;default:false"`
	FailureReason             *string    `json:"failure_reason,omitempty" gorm:"type:text"`
	PaidAt                    *time.Time `json:"paid_at,omitempty"`
	CreatedAt                 time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt                 time.Time  `json:"updated_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// Settled reports whether both settlement credits have been applied.
func (p *Payment) Settled() bool {
	return p.CooperativeBalanceUpdated && p.FeeBalanceUpdated
}

// PaymentTransaction is one gateway attempt for a payment. Retries create
// new rows; gateway_transaction_id is unique across all rows.
type PaymentTransaction struct {
	ID                   int64          `json:"id" gorm:"primaryKey"`
	PaymentID            int64          `json:"payment_id" gorm:"not null;index"`
	GatewayTransactionID string         `json:"gateway_transaction_id" gorm:"type:text;not null;uniqueIndex"`
	Status               string         `json:"status" gorm:"type:text;not null"`
	GatewayResponse      datatypes.JSON `json:"gateway_response,omitempty" gorm:"type:jsonb"`
	PaymentURL           *string        `json:"payment_url,omitempty" gorm:"type:text"`
	FailureReason        *string        `json:"failure_reason,omitempty" gorm:"type:text"`
	WebhookReceived      bool           `json:"webhook_received" gorm:"not null;default:false"`
	WebhookReceivedAt    *time.Time     `json:"webhook_received_at,omitempty"`
	CreatedAt            time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time      `json:"updated_at" gorm:"not null"`
}

func (PaymentTransaction) TableName() string { return "payment_transactions" }

// TerminalTxnStatus reports whether a transaction status can no longer change.
func TerminalTxnStatus(status string) bool {
	switch status {
	case TxnStatusCompleted, TxnStatusFailed, TxnStatusCancelled:
		return true
	}
	return false
}
