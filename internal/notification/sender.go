package notification

import (
	"context"

	"github.com/coopsuite/copay/internal/notification/domain"
	"go.uber.org/zap"
)

// logSender records deliveries instead of calling a messaging provider.
// Production deployments swap in an SMS or push sender through fx.
type logSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) domain.Sender {
	return &logSender{log: log.Named("notification.sender")}
}

func (s *logSender) Send(_ context.Context, d *domain.NotificationDelivery) error {
	s.log.Info("notification dispatched",
		zap.Int64("delivery_id", d.ID),
		zap.Int64("recipient_id", d.RecipientID),
		zap.String("kind", d.Kind),
	)
	return nil
}
