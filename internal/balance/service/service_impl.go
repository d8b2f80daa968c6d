package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/coopsuite/copay/internal/balance/domain"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/observability/metrics"
	paymentdomain "github.com/coopsuite/copay/internal/payment/domain"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("balance.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// ProcessPaymentSettlement applies the two settlement credits of a completed
// payment. Each credit runs only while its flag is still false, so the call
// is safe to repeat: a retry after partial failure completes the missing
// half and nothing else.
func (s *Service) ProcessPaymentSettlement(ctx context.Context, paymentID int64) error {
	payment, err := s.repo.FindPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return domain.ErrPaymentNotFound
	}
	if payment.Status != paymentdomain.StatusCompleted {
		return domain.ErrPaymentNotCompleted
	}

	if !payment.CooperativeBalanceUpdated {
		if err := s.creditCooperative(ctx, payment); err != nil {
			return fmt.Errorf("cooperative credit for payment %d: %w", payment.ID, err)
		}
	}

	if !payment.FeeBalanceUpdated {
		if err := s.creditFee(ctx, payment); err != nil {
			return fmt.Errorf("fee credit for payment %d: %w", payment.ID, err)
		}
	}

	return nil
}

func (s *Service) creditCooperative(ctx context.Context, payment *paymentdomain.Payment) error {
	now := s.clock.Now()
	if err := s.repo.CreditCooperative(ctx, payment.CooperativeID, payment.BaseAmount, now); err != nil {
		return err
	}

	coopID := payment.CooperativeID
	if err := s.repo.InsertTransaction(ctx, &domain.BalanceTransaction{
		Type:          domain.TxnTypeCreditFromPayment,
		CooperativeID: &coopID,
		Amount:        payment.BaseAmount,
		ReferenceID:   payment.ID,
		Status:        "completed",
		CreatedAt:     now,
	}); err != nil {
		return err
	}

	flipped, err := s.repo.SetCooperativeFlag(ctx, payment.ID, now)
	if err != nil {
		return err
	}
	if !flipped {
		s.log.Warn("cooperative flag already set", zap.Int64("payment_id", payment.ID))
	}
	payment.CooperativeBalanceUpdated = true
	s.metrics.RecordSettlement(ctx, domain.TxnTypeCreditFromPayment)
	return nil
}

func (s *Service) creditFee(ctx context.Context, payment *paymentdomain.Payment) error {
	now := s.clock.Now()
	if err := s.repo.CreditCopay(ctx, payment.Fee, now); err != nil {
		return err
	}

	if err := s.repo.InsertTransaction(ctx, &domain.BalanceTransaction{
		Type:        domain.TxnTypeFeeCollection,
		Amount:      payment.Fee,
		ReferenceID: payment.ID,
		Status:      "completed",
		CreatedAt:   now,
	}); err != nil {
		return err
	}

	flipped, err := s.repo.SetFeeFlag(ctx, payment.ID, now)
	if err != nil {
		return err
	}
	if !flipped {
		s.log.Warn("fee flag already set", zap.Int64("payment_id", payment.ID))
	}
	payment.FeeBalanceUpdated = true
	s.metrics.RecordSettlement(ctx, domain.TxnTypeFeeCollection)
	return nil
}

// Redistribute replays settlement for one payment. force resets both flags
// first and re-credits, which changes balances; the HTTP layer restricts it
// to platform administrators.
func (s *Service) Redistribute(ctx context.Context, paymentID int64, force bool) error {
	if force {
		payment, err := s.repo.FindPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return domain.ErrPaymentNotFound
		}
		if payment.Status != paymentdomain.StatusCompleted {
			return domain.ErrPaymentNotCompleted
		}
		if err := s.repo.ResetFlags(ctx, paymentID, s.clock.Now()); err != nil {
			return err
		}
	}
	return s.ProcessPaymentSettlement(ctx, paymentID)
}

// BatchRedistribute sweeps completed payments with a missing credit. One
// failing item never aborts the batch.
func (s *Service) BatchRedistribute(ctx context.Context, limit int) (domain.BatchResult, error) {
	if limit <= 0 {
		limit = 100
	}

	payments, err := s.repo.ListUnsettled(ctx, limit)
	if err != nil {
		return domain.BatchResult{}, err
	}

	result := domain.BatchResult{Processed: len(payments)}
	for _, payment := range payments {
		if err := s.ProcessPaymentSettlement(ctx, payment.ID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("payment %d: %v", payment.ID, err))
			s.log.Warn("settlement sweep item failed",
				zap.Int64("payment_id", payment.ID),
				zap.Error(err),
			)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

func (s *Service) Overview(ctx context.Context) (*domain.Overview, error) {
	return s.repo.Overview(ctx)
}

func (s *Service) CooperativeBalance(ctx context.Context, cooperativeID int64) (*domain.CooperativeBalance, error) {
	balance, err := s.repo.GetCooperativeBalance(ctx, cooperativeID)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		// No credit has ever landed; report an empty balance rather than 404.
		return &domain.CooperativeBalance{CooperativeID: cooperativeID}, nil
	}
	return balance, nil
}

func (s *Service) CopayBalance(ctx context.Context) (*domain.CopayBalance, error) {
	balance, err := s.repo.GetCopayBalance(ctx)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, domain.ErrBalanceNotFound
	}
	return balance, nil
}

// RevenueSummary aggregates completed payments per day. Grouping happens in
// memory so the query stays portable across dialects.
func (s *Service) RevenueSummary(ctx context.Context, from, to time.Time) ([]domain.RevenueDay, error) {
	payments, err := s.repo.ListCompletedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	grouped := lo.GroupBy(payments, func(p paymentdomain.Payment) string {
		if p.PaidAt == nil {
			return p.CreatedAt.UTC().Format("2006-01-02")
		}
		return p.PaidAt.UTC().Format("2006-01-02")
	})

	days := lo.Keys(grouped)
	sort.Strings(days)

	summary := make([]domain.RevenueDay, 0, len(days))
	for _, day := range days {
		items := grouped[day]
		summary = append(summary, domain.RevenueDay{
			Day:      day,
			Payments: int64(len(items)),
			BaseVolume: lo.SumBy(items, func(p paymentdomain.Payment) int64 {
				return p.BaseAmount
			}),
			Fees: lo.SumBy(items, func(p paymentdomain.Payment) int64 {
				return p.Fee
			}),
		})
	}
	return summary, nil
}
