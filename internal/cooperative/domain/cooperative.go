package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

var (
	ErrNotFound  = errors.New("cooperative_not_found")
	ErrSuspended = errors.New("cooperative_suspended")
)

type Cooperative struct {
	ID        snowflake.ID `gorm:"column:id;primaryKey" json:"id"`
	Name      string       `gorm:"column:name" json:"name"`
	Status    string       `gorm:"column:status" json:"status"`
	CreatedAt time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

func (Cooperative) TableName() string { return "cooperatives" }

type Repository interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Cooperative, error)
}
