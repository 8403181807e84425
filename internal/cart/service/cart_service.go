// Package service implements the cart aggregator: one line per (owner,
// product) pair, merge-on-add, and catalog-joined listing.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/beastsupply/storefront/internal/cart/cache"
	"github.com/beastsupply/storefront/internal/cart/repository"
	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	catalog catalog.Accessor
	log     *zap.Logger
	sfg     singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, catalog catalog.Accessor, log *zap.Logger) *CartService {
	return &CartService{
		repo:    repo,
		cache:   cache,
		catalog: catalog,
		log:     log,
	}
}

// Add merges quantity into the owner's line for productID and returns the
// resulting line.
func (s *CartService) Add(ctx context.Context, ownerID string, productID int64, quantity int) (domain.CartLine, error) {
	if ownerID == "" {
		return domain.CartLine{}, domain.ErrUnauthenticated
	}
	if quantity <= 0 {
		return domain.CartLine{}, fmt.Errorf("quantity %d must be positive: %w", quantity, domain.ErrInvalidArgument)
	}
	if _, err := s.catalog.Get(ctx, productID); err != nil {
		return domain.CartLine{}, fmt.Errorf("add product %d: %w", productID, err)
	}

	line, err := s.repo.AddQuantity(ctx, ownerID, productID, quantity)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("repo add item failed",
			zap.String("owner_id", ownerID), zap.Int64("product_id", productID), zap.Error(err))
		return domain.CartLine{}, err
	}

	s.invalidateCache(ctx, ownerID)
	return line, nil
}

// SetQuantity overwrites a line's quantity. A non-positive quantity deletes
// the line, in which case the returned line is absent.
func (s *CartService) SetQuantity(ctx context.Context, ownerID, lineID string, quantity int) (domain.Optional[domain.CartLine], error) {
	if ownerID == "" {
		return domain.None[domain.CartLine](), domain.ErrUnauthenticated
	}
	if quantity <= 0 {
		if err := s.Remove(ctx, ownerID, lineID); err != nil {
			return domain.None[domain.CartLine](), err
		}
		return domain.None[domain.CartLine](), nil
	}

	line, err := s.repo.SetQuantity(ctx, ownerID, lineID, quantity)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithContext(ctx, s.log).Error("repo update item quantity failed",
				zap.String("owner_id", ownerID), zap.String("line_id", lineID), zap.Error(err))
		}
		return domain.None[domain.CartLine](), err
	}

	s.invalidateCache(ctx, ownerID)
	return domain.Some(line), nil
}

func (s *CartService) Remove(ctx context.Context, ownerID, lineID string) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}
	if err := s.repo.RemoveLine(ctx, ownerID, lineID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.WithContext(ctx, s.log).Error("repo remove item failed",
				zap.String("owner_id", ownerID), zap.String("line_id", lineID), zap.Error(err))
		}
		return err
	}

	s.invalidateCache(ctx, ownerID)
	return nil
}

// List returns the owner's lines joined with live catalog data. An anonymous
// caller gets an empty cart.
func (s *CartService) List(ctx context.Context, ownerID string) ([]domain.CartItemView, error) {
	if ownerID == "" {
		return []domain.CartItemView{}, nil
	}

	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		return s.cachedLines(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	lines := v.([]domain.CartLine)
	if len(lines) == 0 {
		return []domain.CartItemView{}, nil
	}

	products, err := s.catalog.GetMany(ctx, productIDs(lines))
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	views := make([]domain.CartItemView, 0, len(lines))
	for _, l := range lines {
		view := domain.CartItemView{Line: l}
		if p, ok := products[l.ProductID]; ok {
			view.Product = domain.Some(p)
		}
		views = append(views, view)
	}
	return views, nil
}

// Lines reads the owner's lines straight from the store, bypassing the cache.
func (s *CartService) Lines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.repo.ListLines(ctx, ownerID)
}

// Clear deletes every line of the owner's cart. Clearing an empty cart
// succeeds.
func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}
	if _, err := s.repo.DeleteLines(ctx, ownerID); err != nil {
		logger.WithContext(ctx, s.log).Error("repo clear cart failed",
			zap.String("owner_id", ownerID), zap.Error(err))
		return err
	}

	s.invalidateCache(ctx, ownerID)
	return nil
}

// ClearConsumed deletes the lines an order was built from. A line written
// after the order's snapshot no longer matches its ref and is kept.
func (s *CartService) ClearConsumed(ctx context.Context, ownerID string, refs []domain.LineRef) error {
	if ownerID == "" {
		return domain.ErrUnauthenticated
	}
	n, err := s.repo.DeleteLineRevisions(ctx, ownerID, refs)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("repo clear consumed lines failed",
			zap.String("owner_id", ownerID), zap.Error(err))
		return err
	}
	if n > 0 {
		s.invalidateCache(ctx, ownerID)
	}
	return nil
}

// cachedLines serves from the cache and fills it on a miss. The generation
// is read before the store so a fill racing with a mutation is dropped.
func (s *CartService) cachedLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	log := logger.WithContext(ctx, s.log).With(zap.String("owner_id", ownerID))

	lines, err := s.cache.Get(ctx, ownerID)
	if err == nil {
		return lines, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn("cache get failed", zap.Error(err))
	}

	gen, genErr := s.cache.Generation(ctx, ownerID)
	if genErr != nil {
		log.Warn("cache generation failed, skipping fill", zap.Error(genErr))
	}

	lines, err = s.repo.ListLines(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		err := s.cache.Set(context.WithoutCancel(ctx), ownerID, lines, gen)
		switch {
		case errors.Is(err, cache.ErrStaleGeneration):
			log.Debug("cart changed while loading, cache not filled")
		case err != nil:
			log.Warn("cache set failed", zap.Error(err))
		}
	}
	return lines, nil
}

func (s *CartService) invalidateCache(ctx context.Context, ownerID string) {
	if err := s.cache.Delete(context.WithoutCancel(ctx), ownerID); err != nil {
		logger.WithContext(ctx, s.log).Warn("cache invalidate failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func productIDs(lines []domain.CartLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	return ids
}
