package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const (
	KindPaymentCompleted = "payment_completed"
	KindPaymentFailed    = "payment_failed"
)

// MaxAttempts caps retries; a delivery that keeps failing goes to the
// failed state and stays there for manual inspection.
const MaxAttempts = 5

var ErrInvalidKind = errors.New("invalid_notification_kind")

// NotificationDelivery is one outbox row. The dispatcher owns all
// transitions; rows are due when next_retry_at has passed.
type NotificationDelivery struct {
	ID          int64          `json:"id" gorm:"primaryKey"`
	RecipientID int64          `json:"recipient_id" gorm:"not null"`
	Kind        string         `json:"kind" gorm:"type:text;not null"`
	Payload     datatypes.JSON `json:"payload,omitempty" gorm:"type:jsonb"`
	Status      string         `json:"status" gorm:"type:text;not null"`
	Attempts    int            `json:"attempts" gorm:"not null"`
	NextRetryAt *time.Time     `json:"next_retry_at,omitempty"`
	LastError   *string        `json:"last_error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null"`
}

func (NotificationDelivery) TableName() string { return "notification_deliveries" }

// Sender pushes one delivery to its channel (SMS, push, email). The
// concrete channel lives outside this service.
type Sender interface {
	Send(ctx context.Context, delivery *NotificationDelivery) error
}

type Service interface {
	Enqueue(ctx context.Context, recipientID int64, kind string, payload map[string]any) error
	DispatchDue(ctx context.Context, limit int) (int, error)
}

type Repository interface {
	Insert(ctx context.Context, d *NotificationDelivery) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]NotificationDelivery, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkRetry(ctx context.Context, id int64, attempts int, nextRetryAt time.Time, lastError string, at time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string, at time.Time) error
}
