package repository

import (
	"context"
	"time"

	"github.com/coopsuite/copay/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, d *domain.NotificationDelivery) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO notification_deliveries (
			id, recipient_id, kind, payload, status, attempts, next_retry_at,
			last_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.RecipientID,
		d.Kind,
		d.Payload,
		d.Status,
		d.Attempts,
		d.NextRetryAt,
		d.LastError,
		d.CreatedAt,
		d.UpdatedAt,
	).Error
}

func (r *repo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.NotificationDelivery, error) {
	var items []domain.NotificationDelivery
	stmt := r.db.WithContext(ctx).
		Model(&domain.NotificationDelivery{}).
		Where("status = ?", domain.StatusPending).
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now.UTC()).
		Order("next_retry_at asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE notification_deliveries
		 SET status = ?, last_error = NULL, updated_at = ?
		 WHERE id = ?`,
		domain.StatusSent,
		at,
		id,
	).Error
}

func (r *repo) MarkRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, lastError string, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE notification_deliveries
		 SET attempts = ?, next_retry_at = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		attempts,
		nextRetryAt,
		lastError,
		at,
		id,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, id int64, attempts int, lastError string, at time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE notification_deliveries
		 SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		 WHERE id = ?`,
		domain.StatusFailed,
		attempts,
		lastError,
		at,
		id,
	).Error
}
