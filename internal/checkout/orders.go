package checkout

import (
	"context"
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetOrder returns the caller's order. Another owner's order reads as not
// found.
func (s *Service) GetOrder(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Order, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.orders.GetOrder(ctx, ownerID, id)
}

func (s *Service) ListOrders(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.orders.ListOrdersByOwner(ctx, ownerID)
}

// UpdateStatus applies a fulfillment decision to an order.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(status)); err != nil {
		return nil, err
	}
	order, err := s.orders.UpdateOrder(ctx, orderID, domain.OrderUpdate{Status: domain.Some(status)})
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	logger.WithContext(ctx, s.log).Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", order.Status.String()))
	return order, nil
}
