package domain

import "context"

type Repository interface {
	Create(ctx context.Context, item *PaymentType) error
	Update(ctx context.Context, item *PaymentType) error
	FindByID(ctx context.Context, cooperativeID, id int64) (*PaymentType, error)
	FindAnyByID(ctx context.Context, id int64) (*PaymentType, error)
	FindAll(ctx context.Context, cooperativeID int64, activeOnly bool) ([]PaymentType, error)
}
