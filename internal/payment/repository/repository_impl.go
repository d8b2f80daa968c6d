package repository

import (
	"context"
	"strings"
	"time"

	"github.com/coopsuite/copay/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, cooperative_id, payment_type_id, payer_id, base_amount, fee, amount,
			currency, channel, phone_number, status, idempotency_key, payment_reference,
			invoice_number, cooperative_balance_updated, fee_balance_updated,
			failure_reason, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.CooperativeID,
		p.PaymentTypeID,
		p.PayerID,
		p.BaseAmount,
		p.Fee,
		p.Amount,
		p.Currency,
		p.Channel,
		p.PhoneNumber,
		p.Status,
		p.IdempotencyKey,
		p.PaymentReference,
		p.InvoiceNumber,
		p.CooperativeBalanceUpdated,
		p.FeeBalanceUpdated,
		p.FailureReason,
		p.PaidAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&p).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *repo) MarkFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusFailed,
		reason,
		at,
		id,
	).Error
}

func (r *repo) SetGatewayResult(ctx context.Context, id int64, invoiceNumber *string, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET invoice_number = ?, updated_at = ?
		 WHERE id = ?`,
		invoiceNumber,
		at,
		id,
	).Error
}

// SetStatus reports whether the payment actually transitioned. A completed
// payment is already settled against balances and never changes status again,
// even when a late callback on another transaction says otherwise.
func (r *repo) SetStatus(ctx context.Context, id int64, status string, failureReason *string, paidAt *time.Time, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, failure_reason = ?, paid_at = COALESCE(paid_at, ?), updated_at = ?
		 WHERE id = ? AND status <> ?`,
		status,
		failureReason,
		paidAt,
		at,
		id,
		domain.StatusCompleted,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Search(ctx context.Context, scope domain.Scope, filter domain.SearchFilter) ([]domain.Payment, error) {
	var items []domain.Payment
	stmt := r.db.WithContext(ctx).Model(&domain.Payment{})

	if scope.PayerID != 0 {
		stmt = stmt.Where("payer_id = ?", scope.PayerID)
	}
	if scope.CooperativeID != 0 {
		stmt = stmt.Where("cooperative_id = ?", scope.CooperativeID)
	}

	if status := strings.TrimSpace(filter.Status); status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	if channel := strings.TrimSpace(filter.Channel); channel != "" {
		stmt = stmt.Where("channel = ?", channel)
	}
	if filter.MinAmount > 0 {
		stmt = stmt.Where("amount >= ?", filter.MinAmount)
	}
	if filter.MaxAmount > 0 {
		stmt = stmt.Where("amount <= ?", filter.MaxAmount)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("created_at <= ?", filter.To.UTC())
	}

	stmt = stmt.Order("created_at desc, id desc")
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 250 {
		limit = 250
	}
	stmt = stmt.Limit(limit)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListForCooperative(ctx context.Context, cooperativeID int64) ([]domain.CooperativePayment, error) {
	var items []domain.CooperativePayment
	err := r.db.WithContext(ctx).Raw(
		`SELECT p.*,
		        t.id AS latest_transaction_id,
		        t.status AS latest_transaction_status,
		        t.gateway_transaction_id AS latest_gateway_id
		 FROM payments p
		 LEFT JOIN payment_transactions t ON t.id = (
			SELECT id FROM payment_transactions
			WHERE payment_id = p.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		 )
		 WHERE p.cooperative_id = ?
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT 250`,
		cooperativeID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertTransaction(ctx context.Context, t *domain.PaymentTransaction) (bool, error) {
	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO payment_transactions (
			id, payment_id, gateway_transaction_id, status, gateway_response,
			payment_url, failure_reason, webhook_received, webhook_received_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (gateway_transaction_id) DO NOTHING`,
		t.ID,
		t.PaymentID,
		t.GatewayTransactionID,
		t.Status,
		t.GatewayResponse,
		t.PaymentURL,
		t.FailureReason,
		t.WebhookReceived,
		t.WebhookReceivedAt,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindTransactionByGatewayID(ctx context.Context, gatewayTransactionID string) (*domain.PaymentTransaction, error) {
	var t domain.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ?", gatewayTransactionID).
		First(&t).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *repo) UpdateTransaction(ctx context.Context, t *domain.PaymentTransaction) error {
	if t == nil {
		return gorm.ErrInvalidData
	}
	return r.db.WithContext(ctx).Exec(
		`UPDATE payment_transactions
		 SET payment_id = ?, status = ?, gateway_response = ?, payment_url = ?,
		     failure_reason = ?, updated_at = ?
		 WHERE id = ?`,
		t.PaymentID,
		t.Status,
		t.GatewayResponse,
		t.PaymentURL,
		t.FailureReason,
		t.UpdatedAt,
		t.ID,
	).Error
}

func (r *repo) ApplyWebhook(ctx context.Context, id int64, update domain.TxnUpdate) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE payment_transactions
		 SET status = ?, gateway_response = ?, failure_reason = ?,
		     webhook_received = TRUE,
		     webhook_received_at = COALESCE(webhook_received_at, ?),
		     updated_at = ?
		 WHERE id = ?`,
		update.Status,
		update.GatewayResponse,
		update.FailureReason,
		update.ReceivedAt,
		update.ReceivedAt,
		id,
	).Error
}
