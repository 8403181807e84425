package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/logger"
	"github.com/beastsupply/storefront/internal/retry"
	"go.uber.org/zap"
)

const clearTimeout = 10 * time.Second

// clearConsumed removes the cart lines an order was built from, retrying
// with a doubling delay until the retry budget is spent. It keeps going when
// the caller's context is cancelled because the order is already committed.
func (s *Service) clearConsumed(ctx context.Context, order *domain.Order) bool {
	log := logger.WithContext(ctx, s.log).With(zap.String("owner_id", order.OwnerID))

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()

	policy := retry.Policy{Initial: s.settings.ClearRetryDelay, Attempts: s.settings.ClearRetries + 1}
	refs := order.ConsumedLines()
	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return s.cart.ClearConsumed(ctx, order.OwnerID, refs)
	}, func(attempt int, delay time.Duration, err error) {
		log.Warn("cart clear failed, retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
		log.Error("cart clear timed out", zap.Error(err))
	default:
		log.Error("cart clear failed after checkout, leaving it to the order consumer",
			zap.Int("attempts", policy.Attempts), zap.Error(err))
	}
	return false
}
