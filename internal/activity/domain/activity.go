package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	ActionPaymentInitiated  = "payment.initiated"
	ActionPaymentCompleted  = "payment.completed"
	ActionPaymentFailed     = "payment.failed"
	ActionPaymentTypeSaved  = "payment_type.saved"
	ActionBalanceRedispatch = "balance.redistributed"
)

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
)

type ActivityLog struct {
	ID            snowflake.ID      `gorm:"column:id;primaryKey" json:"id"`
	CooperativeID *snowflake.ID     `gorm:"column:cooperative_id" json:"cooperative_id,omitempty"`
	ActorID       *snowflake.ID     `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Action        string            `gorm:"column:action" json:"action"`
	TargetType    string            `gorm:"column:target_type" json:"target_type"`
	TargetID      *snowflake.ID     `gorm:"column:target_id" json:"target_id,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }

type Entry struct {
	CooperativeID *snowflake.ID
	ActorID       *snowflake.ID
	Action        string
	TargetType    string
	TargetID      *snowflake.ID
	Metadata      map[string]any
}

type ListFilter struct {
	CooperativeID snowflake.ID
	Action        string
	TargetType    string
	StartAt       *time.Time
	EndAt         *time.Time
	Limit         int
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter ListFilter) ([]ActivityLog, error)
}

type Repository interface {
	Insert(ctx context.Context, entry *ActivityLog) error
	List(ctx context.Context, filter ListFilter) ([]ActivityLog, error)
}
