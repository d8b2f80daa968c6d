package events

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	PaymentCompletedTopic = "payment.completed"
	PaymentFailedTopic    = "payment.failed"
)

// Module provides the in-process event bus.
var Module = fx.Provide(NewBus)

// PaymentEvent is published when a payment reaches a terminal state.
type PaymentEvent struct {
	Type          string
	PaymentID     int64
	CooperativeID int64
	PayerID       int64
	Amount        int64
	Channel       string
	Reason        string
}

// Handler receives published events. Handlers must be fast; dispatch is
// synchronous with the publisher.
type Handler func(ctx context.Context, ev PaymentEvent)

// Bus is a minimal topic-keyed dispatcher. Settlement and reconciliation
// publish; the notification outbox subscribes, which keeps the dependency
// direction one-way.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log.Named("events.bus"),
	}
}

func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

func (b *Bus) Publish(ctx context.Context, ev PaymentEvent) {
	b.mu.RLock()
	handlers := b.handlers[ev.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("event handler panicked",
						zap.String("topic", ev.Type),
						zap.Any("panic", r),
					)
				}
			}()
			h(ctx, ev)
		}()
	}
}
