package notification

import (
	"context"

	"github.com/coopsuite/copay/internal/events"
	"github.com/coopsuite/copay/internal/notification/domain"
	"github.com/coopsuite/copay/internal/notification/repository"
	"github.com/coopsuite/copay/internal/notification/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(repository.Provide),
	fx.Provide(NewLogSender),
	fx.Provide(service.NewService),
	fx.Invoke(subscribe),
)

// subscribe turns terminal payment events into outbox rows. The bus keeps
// the dependency one-way: reconciliation never imports notification.
func subscribe(bus *events.Bus, svc domain.Service, log *zap.Logger) {
	logger := log.Named("notification.subscriber")

	enqueue := func(ctx context.Context, ev events.PaymentEvent, kind string) {
		err := svc.Enqueue(ctx, ev.PayerID, kind, map[string]any{
			"payment_id":     ev.PaymentID,
			"cooperative_id": ev.CooperativeID,
			"amount":         ev.Amount,
			"channel":        ev.Channel,
			"reason":         ev.Reason,
		})
		if err != nil {
			logger.Warn("enqueue failed",
				zap.Int64("payment_id", ev.PaymentID),
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
	}

	bus.Subscribe(events.PaymentCompletedTopic, func(ctx context.Context, ev events.PaymentEvent) {
		enqueue(ctx, ev, domain.KindPaymentCompleted)
	})
	bus.Subscribe(events.PaymentFailedTopic, func(ctx context.Context, ev events.PaymentEvent) {
		enqueue(ctx, ev, domain.KindPaymentFailed)
	})
}
