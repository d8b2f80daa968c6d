package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/coopsuite/copay/internal/cache"
	"github.com/coopsuite/copay/internal/clock"
	"github.com/coopsuite/copay/internal/paymenttype/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Cache cache.PaymentTypeCache
	Clock clock.Clock
}

type Service struct {
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	cache cache.PaymentTypeCache
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("paymenttype.service"),
		genID: p.GenID,
		repo:  p.Repo,
		cache: p.Cache,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.PaymentType, error) {
	if req.CooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	code := strings.TrimSpace(strings.ToLower(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	if !domain.ValidAmountType(req.AmountType) {
		return nil, domain.ErrInvalidAmountType
	}
	if err := validateAmounts(req.AmountType, req.Amount, req.MinimumAmount); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	item := &domain.PaymentType{
		ID:                  s.genID.Generate().Int64(),
		CooperativeID:       req.CooperativeID,
		Name:                name,
		Code:                code,
		Amount:              req.Amount,
		AmountType:          req.AmountType,
		MinimumAmount:       req.MinimumAmount,
		AllowPartialPayment: req.AllowPartialPayment || req.AmountType == domain.AmountTypePartialAllowed,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}

	// Invalidate before returning so a read after Create never sees the
	// stale catalog.
	s.cache.Invalidate(req.CooperativeID)
	return item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (*domain.PaymentType, error) {
	if req.CooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	item, err := s.repo.FindByID(ctx, req.CooperativeID, req.ID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.AmountType != nil {
		if !domain.ValidAmountType(*req.AmountType) {
			return nil, domain.ErrInvalidAmountType
		}
		item.AmountType = *req.AmountType
	}
	if req.Amount != nil {
		item.Amount = *req.Amount
	}
	if req.MinimumAmount != nil {
		item.MinimumAmount = *req.MinimumAmount
	}
	if req.AllowPartialPayment != nil {
		item.AllowPartialPayment = *req.AllowPartialPayment
	}
	if err := validateAmounts(item.AmountType, item.Amount, item.MinimumAmount); err != nil {
		return nil, err
	}

	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.cache.Invalidate(req.CooperativeID)
	return item, nil
}

func (s *Service) SetActive(ctx context.Context, cooperativeID, id int64, active bool) (*domain.PaymentType, error) {
	if cooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	item, err := s.repo.FindByID(ctx, cooperativeID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	item.IsActive = active
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}

	s.cache.Invalidate(cooperativeID)
	return item, nil
}

func (s *Service) GetByID(ctx context.Context, cooperativeID, id int64) (*domain.PaymentType, error) {
	if cooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	item, err := s.repo.FindByID(ctx, cooperativeID, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

// Resolve looks a payment type up by id alone, regardless of which
// cooperative owns it. Payment initiation uses it to derive the target
// cooperative when the caller names none.
func (s *Service) Resolve(ctx context.Context, id int64) (*domain.PaymentType, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindAnyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) ListByCooperative(ctx context.Context, cooperativeID int64) ([]domain.PaymentType, error) {
	if cooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	if items, ok := s.cache.GetCatalog(cooperativeID); ok {
		return items, nil
	}
	items, err := s.repo.FindAll(ctx, cooperativeID, false)
	if err != nil {
		return nil, err
	}
	s.cache.SetCatalog(cooperativeID, items)
	return items, nil
}

func (s *Service) ListActiveByCooperative(ctx context.Context, cooperativeID int64) ([]domain.PaymentType, error) {
	if cooperativeID == 0 {
		return nil, domain.ErrInvalidCooperative
	}
	if items, ok := s.cache.GetActive(cooperativeID); ok {
		return items, nil
	}
	items, err := s.repo.FindAll(ctx, cooperativeID, true)
	if err != nil {
		return nil, err
	}
	s.cache.SetActive(cooperativeID, items)
	return items, nil
}

func validateAmounts(amountType string, amount, minimum int64) error {
	switch amountType {
	case domain.AmountTypeFixed:
		if amount <= 0 {
			return domain.ErrInvalidAmount
		}
	case domain.AmountTypePartialAllowed:
		if amount <= 0 {
			return domain.ErrInvalidAmount
		}
		if minimum <= 0 || minimum > amount {
			return domain.ErrInvalidMinimum
		}
	case domain.AmountTypeFlexible:
		// amount acts as a suggestion only
	}
	return nil
}
