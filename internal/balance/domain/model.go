package domain

import (
	"context"
	"errors"
	"time"
)

const (
	TxnTypeCreditFromPayment = "credit_from_payment"
	TxnTypeFeeCollection     = "fee_collection"
)

var (
	ErrPaymentNotFound     = errors.New("payment_not_found")
	ErrPaymentNotCompleted = errors.New("payment_not_completed")
	ErrBalanceNotFound     = errors.New("balance_not_found")
)

// CooperativeBalance accumulates what one cooperative has collected. Rows
// are created lazily on first credit and mutated only by increments.
type CooperativeBalance struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	CooperativeID  int64     `json:"cooperative_id" gorm:"not null;uniqueIndex"`
	CurrentBalance int64     `json:"current_balance" gorm:"not null"`
	TotalReceived  int64     `json:"total_received" gorm:"not null"`
	PendingBalance int64     `json:"pending_balance" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"not null"`
}

func (CooperativeBalance) TableName() string { return "cooperative_balances" }

// CopayBalance is the platform fee account, a singleton row with id 1.
type CopayBalance struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	CurrentBalance    int64     `json:"current_balance" gorm:"not null"`
	TotalFees         int64     `json:"total_fees" gorm:"not null"`
	TotalTransactions int64     `json:"total_transactions" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"not null"`
}

func (CopayBalance) TableName() string { return "copay_balances" }

// BalanceTransaction is the immutable audit trail of every credit. Rows are
// never updated or deleted.
type BalanceTransaction struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Type          string    `json:"type" gorm:"type:text;not null"`
	CooperativeID *int64    `json:"cooperative_id,omitempty"`
	Amount        int64     `json:"amount" gorm:"not null"`
	ReferenceID   int64     `json:"reference_id" gorm:"not null;index"`
	Status        string    `json:"status" gorm:"type:text;not null"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}

func (BalanceTransaction) TableName() string { return "balance_transactions" }

// Overview aggregates platform-wide holdings for the admin dashboard.
type Overview struct {
	TotalCooperativeBalance int64 `json:"total_cooperative_balance"`
	TotalReceived           int64 `json:"total_received"`
	CopayBalance            int64 `json:"copay_balance"`
	TotalFees               int64 `json:"total_fees"`
	TotalTransactions       int64 `json:"total_transactions"`
	UnsettledPayments       int64 `json:"unsettled_payments"`
}

// RevenueDay is one day of completed payment volume.
type RevenueDay struct {
	Day        string `json:"day"`
	Payments   int64  `json:"payments"`
	BaseVolume int64  `json:"base_volume"`
	Fees       int64  `json:"fees"`
}

// BatchResult aggregates per-item outcomes of one sweep.
type BatchResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type Service interface {
	ProcessPaymentSettlement(ctx context.Context, paymentID int64) error
	Redistribute(ctx context.Context, paymentID int64, force bool) error
	BatchRedistribute(ctx context.Context, limit int) (BatchResult, error)
	Overview(ctx context.Context) (*Overview, error)
	CooperativeBalance(ctx context.Context, cooperativeID int64) (*CooperativeBalance, error)
	CopayBalance(ctx context.Context) (*CopayBalance, error)
	RevenueSummary(ctx context.Context, from, to time.Time) ([]RevenueDay, error)
}
