package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound           = errors.New("payment_type_not_found")
	ErrInactive           = errors.New("payment_type_inactive")
	ErrInvalidCooperative = errors.New("invalid_cooperative")
	ErrInvalidID          = errors.New("invalid_payment_type_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidAmountType  = errors.New("invalid_amount_type")
	ErrInvalidMinimum     = errors.New("invalid_minimum_amount")
	ErrAmountMismatch     = errors.New("amount_mismatch")
	ErrAmountOutOfRange   = errors.New("amount_out_of_range")
	ErrDuplicateCode      = errors.New("duplicate_code")
)

type CreateRequest struct {
	CooperativeID       int64  `json:"cooperative_id"`
	Name                string `json:"name" binding:"required"`
	Code                string `json:"code" binding:"required"`
	Amount              int64  `json:"amount"`
	AmountType          string `json:"amount_type" binding:"required"`
	MinimumAmount       int64  `json:"minimum_amount"`
	AllowPartialPayment bool   `json:"allow_partial_payment"`
}

type UpdateRequest struct {
	ID                  int64   `json:"-"`
	CooperativeID       int64   `json:"-"`
	Name                *string `json:"name"`
	Amount              *int64  `json:"amount"`
	AmountType          *string `json:"amount_type"`
	MinimumAmount       *int64  `json:"minimum_amount"`
	AllowPartialPayment *bool   `json:"allow_partial_payment"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*PaymentType, error)
	Update(ctx context.Context, req UpdateRequest) (*PaymentType, error)
	SetActive(ctx context.Context, cooperativeID, id int64, active bool) (*PaymentType, error)
	GetByID(ctx context.Context, cooperativeID, id int64) (*PaymentType, error)
	Resolve(ctx context.Context, id int64) (*PaymentType, error)
	ListByCooperative(ctx context.Context, cooperativeID int64) ([]PaymentType, error)
	ListActiveByCooperative(ctx context.Context, cooperativeID int64) ([]PaymentType, error)
}
