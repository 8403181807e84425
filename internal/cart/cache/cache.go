package cache

import (
	"context"
	"errors"

	"github.com/beastsupply/storefront/internal/domain"
)

// CartCache holds an owner's raw cart lines. Product details are never
// cached here so a catalog change shows up on the next read.
//
// Every Delete bumps the owner's generation. A reader takes the generation
// before loading from the store and passes it to Set, which refuses to
// write once the generation has moved on.
type CartCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	Generation(ctx context.Context, ownerID string) (int64, error)
	Set(ctx context.Context, ownerID string, lines []domain.CartLine, generation int64) error
	Delete(ctx context.Context, ownerID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleGeneration is returned by Set when the entry was invalidated
	// after the caller read its generation.
	ErrStaleGeneration = errors.New("cache generation moved")
)
