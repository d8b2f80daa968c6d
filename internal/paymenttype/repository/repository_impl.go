package repository

import (
	"context"

	"github.com/coopsuite/copay/internal/paymenttype/domain"
	"github.com/coopsuite/copay/pkg/db"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Create(ctx context.Context, item *domain.PaymentType) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO payment_types (
			id, cooperative_id, name, code, amount, amount_type,
			minimum_amount, allow_partial_payment, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.CooperativeID,
		item.Name,
		item.Code,
		item.Amount,
		item.AmountType,
		item.MinimumAmount,
		item.AllowPartialPayment,
		item.IsActive,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrDuplicateCode
	}
	return err
}

func (r *repo) Update(ctx context.Context, item *domain.PaymentType) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE payment_types
		 SET name = ?, amount = ?, amount_type = ?, minimum_amount = ?,
		     allow_partial_payment = ?, is_active = ?, updated_at = ?
		 WHERE cooperative_id = ? AND id = ?`,
		item.Name,
		item.Amount,
		item.AmountType,
		item.MinimumAmount,
		item.AllowPartialPayment,
		item.IsActive,
		item.UpdatedAt,
		item.CooperativeID,
		item.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, cooperativeID, id int64) (*domain.PaymentType, error) {
	var item domain.PaymentType
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, cooperative_id, name, code, amount, amount_type,
		        minimum_amount, allow_partial_payment, is_active, created_at, updated_at
		 FROM payment_types WHERE cooperative_id = ? AND id = ?`,
		cooperativeID,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindAnyByID(ctx context.Context, id int64) (*domain.PaymentType, error) {
	var item domain.PaymentType
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, cooperative_id, name, code, amount, amount_type,
		        minimum_amount, allow_partial_payment, is_active, created_at, updated_at
		 FROM payment_types WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindAll(ctx context.Context, cooperativeID int64, activeOnly bool) ([]domain.PaymentType, error) {
	var items []domain.PaymentType
	stmt := r.db.WithContext(ctx).
		Model(&domain.PaymentType{}).
		Where("cooperative_id = ?", cooperativeID)
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
