package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/coopsuite/copay/internal/activity/domain"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/config"
	coopdomain "github.com/coopsuite/copay/internal/cooperative/domain"
	"github.com/coopsuite/copay/internal/gateway/adapters"
	gatewaydomain "github.com/coopsuite/copay/internal/gateway/domain"
	"github.com/coopsuite/copay/internal/identity"
	"github.com/coopsuite/copay/internal/observability/metrics"
	"github.com/coopsuite/copay/internal/payment/domain"
	ptdomain "github.com/coopsuite/copay/internal/paymenttype/domain"
	"github.com/coopsuite/copay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	PaymentTypes ptdomain.Service
	Cooperatives coopdomain.Repository
	Gateways     *adapters.Registry
	Fees         *config.FeeScheduleHolder
	Clock        clock.Clock
	Metrics      *metrics.Metrics `optional:"true"`
	Activity     activitydomain.Service
}

type Service struct {
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	paymentTypes ptdomain.Service
	cooperatives coopdomain.Repository
	gateways     *adapters.Registry
	fees         *config.FeeScheduleHolder
	clock        clock.Clock
	metrics      *metrics.Metrics
	activity     activitydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		paymentTypes: p.PaymentTypes,
		cooperatives: p.Cooperatives,
		gateways:     p.Gateways,
		fees:         p.Fees,
		clock:        p.Clock,
		metrics:      p.Metrics,
		activity:     p.Activity,
	}
}

func (s *Service) Initiate(ctx context.Context, req domain.InitiateRequest) (*domain.InitiateResponse, error) {
	actor, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrForbidden
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" {
		return nil, domain.ErrIdempotencyKeyRequired
	}

	// Idempotency gate runs before any validation or gateway traffic so a
	// retried submission can never double-charge.
	if existing, err := s.repo.FindByIdempotencyKey(ctx, key); err != nil {
		return nil, err
	} else if existing != nil {
		return &domain.InitiateResponse{Payment: *existing, Duplicate: true}, nil
	}

	channel, ok := gatewaydomain.LookupChannel(req.Channel)
	if !ok {
		return nil, domain.ErrInvalidChannel
	}
	var phone *string
	if channel.IsMobileMoney() {
		normalized, err := gatewaydomain.NormalizePhone(req.PhoneNumber)
		if err != nil {
			return nil, err
		}
		phone = &normalized
	}

	paymentType, err := s.paymentTypes.Resolve(ctx, req.PaymentTypeID)
	if err != nil {
		if err == ptdomain.ErrNotFound || err == ptdomain.ErrInvalidID {
			return nil, domain.ErrInvalidPaymentType
		}
		return nil, err
	}

	// Explicit target wins; otherwise the payment goes to the cooperative
	// that owns the payment type. Either way the type must belong to it.
	cooperativeID := req.CooperativeID
	if cooperativeID == 0 {
		cooperativeID = paymentType.CooperativeID
	}
	if paymentType.CooperativeID != cooperativeID {
		return nil, domain.ErrInvalidPaymentType
	}

	coop, err := s.cooperatives.GetByID(ctx, snowflake.ID(cooperativeID))
	if err != nil {
		return nil, err
	}
	if coop.Status != coopdomain.StatusActive {
		return nil, coopdomain.ErrSuspended
	}

	if !paymentType.IsActive {
		return nil, ptdomain.ErrInactive
	}

	base := req.BaseAmount
	if base == 0 && paymentType.AmountType == ptdomain.AmountTypeFixed {
		base = paymentType.Amount
	}
	if err := paymentType.ValidateBaseAmount(base); err != nil {
		return nil, err
	}

	schedule := s.fees.Get()
	now := s.clock.Now()
	id := s.genID.Generate().Int64()
	payment := &domain.Payment{
		ID:               id,
		CooperativeID:    cooperativeID,
		PaymentTypeID:    paymentType.ID,
		PayerID:          actor.UserID,
		BaseAmount:       base,
		Fee:              schedule.TransactionFee,
		Amount:           base + schedule.TransactionFee,
		Currency:         schedule.Currency,
		Channel:          channel.Code,
		PhoneNumber:      phone,
		Status:           domain.StatusPending,
		IdempotencyKey:   key,
		PaymentReference: strconv.FormatInt(id, 10),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Insert(ctx, payment); err != nil {
		// A concurrent submission with the same key won the insert race.
		// Fall back to reading its row instead of failing the caller.
		if db.IsDuplicateKeyErr(err) {
			winner, findErr := s.repo.FindByIdempotencyKey(ctx, key)
			if findErr != nil {
				return nil, findErr
			}
			if winner != nil {
				return &domain.InitiateResponse{Payment: *winner, Duplicate: true}, nil
			}
		}
		return nil, err
	}

	resp, err := s.callGateway(ctx, payment, req.Description)
	if err != nil {
		// The payment row already exists; a gateway failure after persist
		// must leave it in a terminal state, never stuck pending.
		reason := err.Error()
		if markErr := s.repo.MarkFailed(ctx, payment.ID, reason, s.clock.Now()); markErr != nil {
			s.log.Error("failed to mark payment failed after gateway error",
				zap.Int64("payment_id", payment.ID),
				zap.Error(markErr),
			)
		}
		payment.Status = domain.StatusFailed
		payment.FailureReason = &reason
		s.recordActivity(ctx, actor, activitydomain.ActionPaymentFailed, payment)
		s.metrics.RecordPaymentInitiated(ctx, channel.Code, domain.StatusFailed)
		return nil, domain.ErrGatewayFailed
	}

	s.recordActivity(ctx, actor, activitydomain.ActionPaymentInitiated, payment)
	s.metrics.RecordPaymentInitiated(ctx, channel.Code, domain.StatusPending)
	return resp, nil
}

func (s *Service) callGateway(ctx context.Context, payment *domain.Payment, description string) (*domain.InitiateResponse, error) {
	client, _, err := s.gateways.ForChannel(payment.Channel)
	if err != nil {
		return nil, err
	}

	phone := ""
	if payment.PhoneNumber != nil {
		phone = *payment.PhoneNumber
	}
	result, err := client.Initiate(ctx, gatewaydomain.InitiateRequest{
		Reference:   payment.PaymentReference,
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Channel:     payment.Channel,
		PhoneNumber: phone,
		Description: description,
	})
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	txn := &domain.PaymentTransaction{
		ID:                   s.genID.Generate().Int64(),
		PaymentID:            payment.ID,
		GatewayTransactionID: result.GatewayTransactionID,
		Status:               string(result.Status),
		GatewayResponse:      result.Raw,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if result.PaymentURL != "" {
		url := result.PaymentURL
		txn.PaymentURL = &url
	}

	inserted, err := s.repo.InsertTransaction(ctx, txn)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// The gateway reused a transaction id. Reattach the existing row
		// to this payment rather than erroring out of a collected payment.
		existing, findErr := s.repo.FindTransactionByGatewayID(ctx, result.GatewayTransactionID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, domain.ErrTransactionNotFound
		}
		existing.PaymentID = payment.ID
		existing.Status = string(result.Status)
		existing.GatewayResponse = result.Raw
		existing.PaymentURL = txn.PaymentURL
		existing.UpdatedAt = now
		if err := s.repo.UpdateTransaction(ctx, existing); err != nil {
			return nil, err
		}
		txn = existing
	}

	if result.InvoiceNumber != "" {
		invoice := result.InvoiceNumber
		payment.InvoiceNumber = &invoice
		if err := s.repo.SetGatewayResult(ctx, payment.ID, &invoice, now); err != nil {
			return nil, err
		}
	}

	resp := &domain.InitiateResponse{Payment: *payment}
	if txn.PaymentURL != nil {
		resp.PaymentURL = *txn.PaymentURL
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	actor, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrForbidden
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil || !visibleTo(actor, payment) {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

func (s *Service) Search(ctx context.Context, filter domain.SearchFilter) ([]domain.Payment, error) {
	actor, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrForbidden
	}
	return s.repo.Search(ctx, scopeFor(actor), filter)
}

func (s *Service) ListForCooperative(ctx context.Context) ([]domain.CooperativePayment, error) {
	actor, ok := identity.FromContext(ctx)
	if !ok {
		return nil, domain.ErrForbidden
	}
	if !actor.IsCooperativeAdmin() && !actor.IsPlatformAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.repo.ListForCooperative(ctx, actor.CooperativeID)
}

// scopeFor translates a role into data predicates. Visibility is a property
// of the query, not a post-filter.
func scopeFor(actor identity.Actor) domain.Scope {
	switch {
	case actor.IsPlatformAdmin():
		return domain.Scope{}
	case actor.IsCooperativeAdmin():
		return domain.Scope{CooperativeID: actor.CooperativeID}
	default:
		return domain.Scope{PayerID: actor.UserID}
	}
}

func visibleTo(actor identity.Actor, p *domain.Payment) bool {
	switch {
	case actor.IsPlatformAdmin():
		return true
	case actor.IsCooperativeAdmin():
		return p.CooperativeID == actor.CooperativeID
	default:
		return p.PayerID == actor.UserID
	}
}

func (s *Service) recordActivity(ctx context.Context, actor identity.Actor, action string, p *domain.Payment) {
	coopID := snowflake.ID(p.CooperativeID)
	actorID := snowflake.ID(actor.UserID)
	targetID := snowflake.ID(p.ID)
	if err := s.activity.Record(ctx, activitydomain.Entry{
		CooperativeID: &coopID,
		ActorID:       &actorID,
		Action:        action,
		TargetType:    "payment",
		TargetID:      &targetID,
		Metadata: map[string]any{
			"amount":  p.Amount,
			"channel": p.Channel,
			"status":  p.Status,
		},
	}); err != nil {
		s.log.Warn("activity record failed", zap.String("action", action), zap.Error(err))
	}
}
