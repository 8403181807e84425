package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/beastsupply/storefront/internal/circuitbreaker"
	"github.com/beastsupply/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// BreakerAccessor guards catalog reads with a circuit breaker. A missing
// product is an answer, not a failure, and does not count toward tripping.
type BreakerAccessor struct {
	next   Accessor
	single *gobreaker.CircuitBreaker[domain.Product]
	many   *gobreaker.CircuitBreaker[map[int64]domain.Product]
}

func NewBreakerAccessor(next Accessor, log *zap.Logger) *BreakerAccessor {
	settings := circuitbreaker.DefaultSettings("catalog")
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ErrProductNotFound)
	}
	many := settings
	many.Name = "catalog-batch"

	return &BreakerAccessor{
		next:   next,
		single: circuitbreaker.New[domain.Product](settings, log),
		many:   circuitbreaker.New[map[int64]domain.Product](many, log),
	}
}

func (b *BreakerAccessor) Get(ctx context.Context, id int64) (domain.Product, error) {
	p, err := b.single.Execute(func() (domain.Product, error) {
		return b.next.Get(ctx, id)
	})
	if err != nil {
		return domain.Product{}, wrapBreakerErr(err)
	}
	return p, nil
}

func (b *BreakerAccessor) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	products, err := b.many.Execute(func() (map[int64]domain.Product, error) {
		return b.next.GetMany(ctx, ids)
	})
	if err != nil {
		return nil, wrapBreakerErr(err)
	}
	return products, nil
}

func wrapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("catalog unavailable: %w", err)
	}
	return err
}
