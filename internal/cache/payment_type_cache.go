package cache

import (
	"fmt"
	"time"

	"github.com/coopsuite/copay/internal/paymenttype/domain"
	goCache "github.com/patrickmn/go-cache"
	"go.uber.org/fx"
)

const (
	defaultCatalogTTL = 10 * time.Minute
	defaultActiveTTL  = 45 * time.Second

	cleanupInterval = 5 * time.Minute
)

// Module provides the payment type cache.
var Module = fx.Provide(NewPaymentTypeCache)

// PaymentTypeCache stores hot-path catalog lookups for payment initiation.
// Active-only entries use a short TTL so activation toggles propagate fast
// even without invalidation; writes still invalidate synchronously.
type PaymentTypeCache interface {
	GetCatalog(cooperativeID int64) ([]domain.PaymentType, bool)
	SetCatalog(cooperativeID int64, items []domain.PaymentType)
	GetActive(cooperativeID int64) ([]domain.PaymentType, bool)
	SetActive(cooperativeID int64, items []domain.PaymentType)
	Invalidate(cooperativeID int64)
}

type paymentTypeCache struct {
	store      *goCache.Cache
	catalogTTL time.Duration
	activeTTL  time.Duration
}

// NewPaymentTypeCache returns an in-memory cache tuned for catalog reads.
func NewPaymentTypeCache() PaymentTypeCache {
	return &paymentTypeCache{
		store:      goCache.New(defaultCatalogTTL, cleanupInterval),
		catalogTTL: defaultCatalogTTL,
		activeTTL:  defaultActiveTTL,
	}
}

func (c *paymentTypeCache) GetCatalog(cooperativeID int64) ([]domain.PaymentType, bool) {
	return c.get(catalogKey(cooperativeID))
}

func (c *paymentTypeCache) SetCatalog(cooperativeID int64, items []domain.PaymentType) {
	c.store.Set(catalogKey(cooperativeID), items, c.catalogTTL)
}

func (c *paymentTypeCache) GetActive(cooperativeID int64) ([]domain.PaymentType, bool) {
	return c.get(activeKey(cooperativeID))
}

func (c *paymentTypeCache) SetActive(cooperativeID int64, items []domain.PaymentType) {
	c.store.Set(activeKey(cooperativeID), items, c.activeTTL)
}

func (c *paymentTypeCache) Invalidate(cooperativeID int64) {
	c.store.Delete(catalogKey(cooperativeID))
	c.store.Delete(activeKey(cooperativeID))
}

func (c *paymentTypeCache) get(key string) ([]domain.PaymentType, bool) {
	value, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	items, ok := value.([]domain.PaymentType)
	return items, ok
}

func catalogKey(cooperativeID int64) string {
	return fmt.Sprintf("payment_types|catalog|%d", cooperativeID)
}

func activeKey(cooperativeID int64) string {
	return fmt.Sprintf("payment_types|active|%d", cooperativeID)
}
