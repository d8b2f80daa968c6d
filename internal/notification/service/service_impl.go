package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cenkalti/backoff/v4"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/notification/domain"
	"github.com/coopsuite/copay/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Sender  domain.Sender
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	sender  domain.Sender
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		sender:  p.Sender,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Enqueue(ctx context.Context, recipientID int64, kind string, payload map[string]any) error {
	switch kind {
	case domain.KindPaymentCompleted, domain.KindPaymentFailed:
	default:
		return domain.ErrInvalidKind
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	due := now
	return s.repo.Insert(ctx, &domain.NotificationDelivery{
		ID:          s.genID.Generate().Int64(),
		RecipientID: recipientID,
		Kind:        kind,
		Payload:     encoded,
		Status:      domain.StatusPending,
		NextRetryAt: &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// DispatchDue sends every due delivery once. Failures schedule the next
// attempt with exponential backoff until the attempt cap is reached.
func (s *Service) DispatchDue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	now := s.clock.Now()
	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		delivery := due[i]
		if err := s.sender.Send(ctx, &delivery); err != nil {
			attempts := delivery.Attempts + 1
			if attempts >= domain.MaxAttempts {
				if markErr := s.repo.MarkFailed(ctx, delivery.ID, attempts, err.Error(), s.clock.Now()); markErr != nil {
					return sent, markErr
				}
				s.metrics.RecordNotificationDispatch(ctx, delivery.Kind, "exhausted")
				s.log.Warn("notification exhausted retries",
					zap.Int64("delivery_id", delivery.ID),
					zap.String("kind", delivery.Kind),
					zap.Error(err),
				)
				continue
			}

			next := s.clock.Now().Add(retryDelay(attempts))
			if markErr := s.repo.MarkRetry(ctx, delivery.ID, attempts, next, err.Error(), s.clock.Now()); markErr != nil {
				return sent, markErr
			}
			s.metrics.RecordNotificationDispatch(ctx, delivery.Kind, "retry")
			continue
		}

		if err := s.repo.MarkSent(ctx, delivery.ID, s.clock.Now()); err != nil {
			return sent, err
		}
		s.metrics.RecordNotificationDispatch(ctx, delivery.Kind, "sent")
		sent++
	}
	return sent, nil
}

// retryDelay replays the exponential schedule up to the given attempt so
// the delay depends only on the attempt count, not on dispatcher state.
func retryDelay(attempt int) time.Duration {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 30 * time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = 30 * time.Minute
	policy.MaxElapsedTime = 0
	policy.Reset()

	delay := policy.NextBackOff()
	for i := 1; i < attempt; i++ {
		delay = policy.NextBackOff()
	}
	return delay
}
