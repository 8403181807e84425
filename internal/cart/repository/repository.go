package repository

import (
	"context"
	"fmt"

	"github.com/beastsupply/storefront/internal/domain"
)

var ErrLineNotFound = fmt.Errorf("cart line %w", domain.ErrNotFound)

// CartRepository stores cart lines. Every method is a single atomic store
// operation scoped to one owner.
type CartRepository interface {
	// AddQuantity increments the (owner, product) line by quantity, creating
	// it when missing, and returns the resulting line.
	AddQuantity(ctx context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error)
	SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) (domain.CartLine, error)
	RemoveLine(ctx context.Context, ownerID, lineID string) error
	ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	DeleteLines(ctx context.Context, ownerID string) (int64, error)
	// DeleteLineRevisions removes the owner's lines that are still at the
	// given revisions. Lines written since are left in place.
	DeleteLineRevisions(ctx context.Context, ownerID string, refs []domain.LineRef) (int64, error)
}
