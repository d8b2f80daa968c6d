package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	balancedomain "github.com/coopsuite/copay/internal/balance/domain"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/events"
	"github.com/coopsuite/copay/internal/gateway/adapters"
	gatewaydomain "github.com/coopsuite/copay/internal/gateway/domain"
	"github.com/coopsuite/copay/internal/observability/metrics"
	"github.com/coopsuite/copay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Repo     domain.Repository
	Gateways *adapters.Registry
	Balances balancedomain.Service
	Bus      *events.Bus
	Clock    clock.Clock
	Metrics  *metrics.Metrics `optional:"true"`
}

// Service reconciles gateway callbacks with local state. Callbacks arrive
// at least once and possibly out of order, so every step is idempotent.
type Service struct {
	log      *zap.Logger
	repo     domain.Repository
	gateways *adapters.Registry
	balances balancedomain.Service
	bus      *events.Bus
	clock    clock.Clock
	metrics  *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:      p.Log.Named("payment.webhook"),
		repo:     p.Repo,
		gateways: p.Gateways,
		balances: p.Balances,
		bus:      p.Bus,
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

type callbackPayload struct {
	TransactionID string `json:"transactionId"`
	InvoiceNumber string `json:"invoiceNumber"`
	PaymentStatus string `json:"paymentStatus"`
	FailureReason string `json:"failureReason"`
	PaidAt        string `json:"paidAt"`
}

func (s *Service) Ingest(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return gatewaydomain.ErrProviderNotFound
	}

	client, err := s.gateways.Resolve(provider)
	if err != nil {
		s.metrics.RecordWebhookEvent(ctx, provider, "unknown_provider")
		return err
	}

	if err := client.VerifyCallback(payload, headers); err != nil {
		// Nothing is mutated on a bad signature; the sender gets an error
		// body but the HTTP layer still answers 200.
		s.log.Warn("callback signature rejected", zap.String("provider", provider))
		s.metrics.RecordWebhookEvent(ctx, provider, "bad_signature")
		return err
	}
	if !json.Valid(payload) {
		s.metrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return gatewaydomain.ErrInvalidPayload
	}

	var parsed callbackPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		s.metrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return gatewaydomain.ErrInvalidPayload
	}
	gatewayID := strings.TrimSpace(parsed.TransactionID)
	if gatewayID == "" {
		s.metrics.RecordWebhookEvent(ctx, provider, "invalid_payload")
		return gatewaydomain.ErrInvalidPayload
	}

	txn, err := s.repo.FindTransactionByGatewayID(ctx, gatewayID)
	if err != nil {
		return err
	}
	if txn == nil {
		// A callback for a transaction we never created is a hard error
		// worth surfacing, not something to silently absorb.
		s.log.Error("callback for unknown transaction",
			zap.String("provider", provider),
			zap.String("gateway_transaction_id", gatewayID),
		)
		s.metrics.RecordWebhookEvent(ctx, provider, "unknown_transaction")
		return domain.ErrTransactionNotFound
	}

	newStatus := mapCallbackStatus(parsed.PaymentStatus)

	// Out-of-order safety: once terminal, a transaction never regresses.
	if domain.TerminalTxnStatus(txn.Status) {
		if string(newStatus) != txn.Status {
			s.log.Warn("late callback ignored for terminal transaction",
				zap.String("gateway_transaction_id", gatewayID),
				zap.String("current", txn.Status),
				zap.String("incoming", string(newStatus)),
			)
		}
		s.metrics.RecordWebhookEvent(ctx, provider, "duplicate")
		// Settlement may still be incomplete from an earlier crash.
		if txn.Status == domain.TxnStatusCompleted {
			return s.settle(ctx, txn.PaymentID)
		}
		return nil
	}

	now := s.clock.Now()
	var failureReason *string
	if reason := strings.TrimSpace(parsed.FailureReason); reason != "" {
		failureReason = &reason
	}
	if err := s.repo.ApplyWebhook(ctx, txn.ID, domain.TxnUpdate{
		Status:          string(newStatus),
		GatewayResponse: payload,
		FailureReason:   failureReason,
		ReceivedAt:      now,
	}); err != nil {
		return err
	}

	switch newStatus {
	case gatewaydomain.StatusCompleted:
		paidAt := parsePaidAt(parsed.PaidAt, now)
		changed, err := s.repo.SetStatus(ctx, txn.PaymentID, domain.StatusCompleted, nil, &paidAt, now)
		if err != nil {
			return err
		}
		s.metrics.RecordWebhookEvent(ctx, provider, "completed")
		// Completion is announced before settlement runs. The gateway never
		// redelivers a callback we answered, so a settlement error here must
		// not swallow the event; the sweep retries the settlement on its own.
		if changed {
			s.publish(ctx, events.PaymentCompletedTopic, txn.PaymentID, "")
		}
		return s.settle(ctx, txn.PaymentID)
	case gatewaydomain.StatusFailed, gatewaydomain.StatusCancelled:
		changed, err := s.repo.SetStatus(ctx, txn.PaymentID, domain.StatusFailed, failureReason, nil, now)
		if err != nil {
			return err
		}
		if !changed {
			// The payment already completed through another transaction; a
			// late failure neither demotes it nor notifies the payer.
			s.metrics.RecordWebhookEvent(ctx, provider, "duplicate")
			return nil
		}
		s.metrics.RecordWebhookEvent(ctx, provider, "failed")
		reason := ""
		if failureReason != nil {
			reason = *failureReason
		}
		s.publish(ctx, events.PaymentFailedTopic, txn.PaymentID, reason)
	default:
		s.metrics.RecordWebhookEvent(ctx, provider, "pending")
	}
	return nil
}

func (s *Service) settle(ctx context.Context, paymentID int64) error {
	if err := s.balances.ProcessPaymentSettlement(ctx, paymentID); err != nil {
		// Surfaced, never absorbed: the flags describe what is still
		// missing and the sweep will retry.
		s.log.Error("settlement failed after completed callback",
			zap.Int64("payment_id", paymentID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) publish(ctx context.Context, topic string, paymentID int64, reason string) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil || payment == nil {
		s.log.Warn("event publish skipped", zap.Int64("payment_id", paymentID), zap.Error(err))
		return
	}
	s.bus.Publish(ctx, events.PaymentEvent{
		Type:          topic,
		PaymentID:     payment.ID,
		CooperativeID: payment.CooperativeID,
		PayerID:       payment.PayerID,
		Amount:        payment.Amount,
		Channel:       payment.Channel,
		Reason:        reason,
	})
}

func mapCallbackStatus(raw string) gatewaydomain.TransactionStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return gatewaydomain.StatusCompleted
	case "FAILED", "EXPIRED", "REJECTED":
		return gatewaydomain.StatusFailed
	case "CANCELLED":
		return gatewaydomain.StatusCancelled
	default:
		return gatewaydomain.StatusPending
	}
}

func parsePaidAt(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC()
	}
	return fallback
}
