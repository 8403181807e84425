// Package checkout turns a cart into an immutable order. Settlement runs
// validate, snapshot, price, commit and clear, in that order; only the clear
// step may fail without failing the checkout.
package checkout

import (
	"context"
	"time"

	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/beastsupply/storefront/internal/pricing"
	"go.uber.org/zap"
)

// Cart is the part of the cart aggregator settlement depends on.
type Cart interface {
	Lines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	// ClearConsumed removes lines still at the revision an order read.
	ClearConsumed(ctx context.Context, ownerID string, refs []domain.LineRef) error
}

type Request struct {
	CustomerInfo   domain.CustomerInfo
	PaymentMethod  domain.PaymentMethod
	ShippingMethod domain.ShippingMethod
	IdempotencyKey domain.Optional[string]
}

func (r Request) options() pricing.Options {
	return pricing.Options{Shipping: r.ShippingMethod, Payment: r.PaymentMethod}
}

// Result describes a committed order. CartCleared is false when the order was
// saved but the cart could not be emptied; the order-placed consumer clears
// it later. Replayed is true when the idempotency key matched an earlier
// order.
type Result struct {
	Order       *domain.Order
	CartCleared bool
	Replayed    bool
}

type Settings struct {
	// SettlementKey is stamped on every order for payment routing.
	SettlementKey   string
	ClearRetries    int
	ClearRetryDelay time.Duration
}

type Service struct {
	cart     Cart
	catalog  catalog.Accessor
	pricing  *pricing.Engine
	orders   repository.OrderRepository
	settings Settings
	log      *zap.Logger
}

func NewService(
	cart Cart,
	catalog catalog.Accessor,
	engine *pricing.Engine,
	orders repository.OrderRepository,
	settings Settings,
	log *zap.Logger,
) *Service {
	return &Service{
		cart:     cart,
		catalog:  catalog,
		pricing:  engine,
		orders:   orders,
		settings: settings,
		log:      log.Named("checkout"),
	}
}
