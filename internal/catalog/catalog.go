// Package catalog reads product data for the cart and checkout. Carts and
// orders never write through it.
package catalog

import (
	"context"
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = fmt.Errorf("product %w", domain.ErrNotFound)

// Accessor returns live product attributes.
type Accessor interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	// GetMany returns the products that exist among ids. Missing ids are
	// simply absent from the map.
	GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
}

// ProductUpdate is a partial update: absent fields are left unchanged.
type ProductUpdate struct {
	Name     domain.Optional[string]
	Category domain.Optional[string]
	Price    domain.Optional[decimal.Decimal]
	Stock    domain.Optional[int]
	ImageRef domain.Optional[string]
}

func (u ProductUpdate) IsEmpty() bool {
	return !u.Name.IsPresent() &&
		!u.Category.IsPresent() &&
		!u.Price.IsPresent() &&
		!u.Stock.IsPresent() &&
		!u.ImageRef.IsPresent()
}
