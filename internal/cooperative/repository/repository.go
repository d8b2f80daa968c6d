package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/coopsuite/copay/internal/cooperative/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) GetByID(ctx context.Context, id snowflake.ID) (*domain.Cooperative, error) {
	var coop domain.Cooperative
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&coop).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &coop, nil
}
