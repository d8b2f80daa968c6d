package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/coopsuite/copay/internal/activity/domain"
	"github.com/coopsuite/copay/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		repo:  p.Repo,
		clock: p.Clock,
	}
}

func (s *Service) Record(ctx context.Context, entry domain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return domain.ErrInvalidAction
	}
	targetType := strings.TrimSpace(entry.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	payload := map[string]any{}
	for key, value := range entry.Metadata {
		if key == "" {
			continue
		}
		payload[key] = value
	}

	row := domain.ActivityLog{
		ID:            s.genID.Generate(),
		CooperativeID: entry.CooperativeID,
		ActorID:       entry.ActorID,
		Action:        action,
		TargetType:    targetType,
		TargetID:      entry.TargetID,
		Metadata:      datatypes.JSONMap(payload),
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, &row); err != nil {
		s.log.Warn("failed to write activity log", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.ActivityLog, error) {
	if filter.StartAt != nil && filter.EndAt != nil && filter.StartAt.After(*filter.EndAt) {
		return nil, domain.ErrInvalidTimeRange
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 250 {
		filter.Limit = 250
	}
	return s.repo.List(ctx, filter)
}
