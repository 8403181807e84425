package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/logger"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/beastsupply/storefront/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Quote prices the owner's live cart. It runs the same snapshot and pricing
// as CreateOrder, so the preview matches what settlement would persist.
func (s *Service) Quote(ctx context.Context, ownerID string, opts pricing.Options) (pricing.Quote, error) {
	if ownerID == "" {
		return pricing.Quote{}, domain.ErrUnauthenticated
	}
	payment, shipping, err := normalizeMethods(opts.Payment, opts.Shipping)
	if err != nil {
		return pricing.Quote{}, err
	}
	opts = pricing.Options{Payment: payment, Shipping: shipping}
	items, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.pricing.Quote(pricingLines(items), opts)
}

func (s *Service) CreateOrder(ctx context.Context, ownerID string, req Request) (*Result, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if err := req.CustomerInfo.Validate(); err != nil {
		return nil, err
	}
	payment, shipping, err := normalizeMethods(req.PaymentMethod, req.ShippingMethod)
	if err != nil {
		return nil, err
	}
	req.PaymentMethod, req.ShippingMethod = payment, shipping

	if key, ok := req.IdempotencyKey.Get(); ok {
		existing, err := s.orders.GetOrderByIdempotencyKey(ctx, ownerID, key)
		if err == nil {
			return s.replay(ctx, existing), nil
		}
		if !errors.Is(err, repository.ErrOrderNotFound) {
			return nil, fmt.Errorf("failed to check idempotency: %w", err)
		}
	}

	items, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricing.Quote(pricingLines(items), req.options())
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		IdempotencyKey: req.IdempotencyKey,
		CustomerInfo:   req.CustomerInfo,
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: req.ShippingMethod,
		Items:          items,
		Subtotal:       quote.Subtotal,
		ShippingCost:   quote.ShippingCost,
		Discount:       quote.Discount,
		Total:          quote.Total,
		Status:         domain.OrderStatusPending,
		SettlementKey:  s.settings.SettlementKey,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			// a concurrent submission with the same key committed first
			key := req.IdempotencyKey.OrElse("")
			existing, getErr := s.orders.GetOrderByIdempotencyKey(ctx, ownerID, key)
			if getErr != nil {
				return nil, fmt.Errorf("failed to load order for idempotency key: %w", getErr)
			}
			return s.replay(ctx, existing), nil
		}
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	logger.WithContext(ctx, s.log).Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("owner_id", ownerID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.String()))

	return &Result{Order: order, CartCleared: s.clearConsumed(ctx, order)}, nil
}

// replay re-runs only the clear step for an order that already exists. Lines
// added or changed after that order was placed are left alone.
func (s *Service) replay(ctx context.Context, order *domain.Order) *Result {
	logger.WithContext(ctx, s.log).Info("duplicate checkout detected",
		zap.String("order_id", order.ID.String()),
		zap.String("owner_id", order.OwnerID))

	return &Result{Order: order, CartCleared: s.clearConsumed(ctx, order), Replayed: true}
}

// normalizeMethods maps legacy aliases onto the canonical method names.
func normalizeMethods(payment domain.PaymentMethod, shipping domain.ShippingMethod) (domain.PaymentMethod, domain.ShippingMethod, error) {
	p, err := domain.ParsePaymentMethod(string(payment))
	if err != nil {
		return "", "", err
	}
	sh, err := domain.ParseShippingMethod(string(shipping))
	if err != nil {
		return "", "", err
	}
	return p, sh, nil
}
