package checkout

import (
	"context"
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/pricing"
)

// snapshot freezes the owner's cart against the catalog with a single batched
// read. Every line must resolve or the whole snapshot fails.
func (s *Service) snapshot(ctx context.Context, ownerID string) ([]domain.OrderItem, error) {
	lines, err := s.cart.Lines(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", l.ProductID, domain.ErrProductUnavailable)
		}
		items = append(items, domain.OrderItem{
			ProductID: l.ProductID,
			Name:      p.Name,
			Quantity:  l.Quantity,
			Price:     p.Price,
			Line:      l.Ref(),
		})
	}
	return items, nil
}

func pricingLines(items []domain.OrderItem) []pricing.Line {
	lines := make([]pricing.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricing.Line{UnitPrice: it.Price, Quantity: it.Quantity})
	}
	return lines
}
