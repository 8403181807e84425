// Package poller clears carts when their order-placed events arrive. It is
// the asynchronous fallback for the inline clear done at checkout.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/retry"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafka.Reader the poller uses. Offsets are
// committed explicitly, only once an event has been handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type CartClearer interface {
	ClearConsumed(ctx context.Context, ownerID string, refs []domain.LineRef) error
}

type Poller struct {
	carts   CartClearer
	reader  MessageReader
	backoff retry.Policy
	log     *zap.Logger
}

func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(carts CartClearer, reader MessageReader, log *zap.Logger) *Poller {
	return &Poller{
		carts:   carts,
		reader:  reader,
		backoff: retry.Policy{Initial: 200 * time.Millisecond, Max: 30 * time.Second},
		log:     log.Named("cart-poller"),
	}
}

// Run consumes until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.getMessageAndEmptyCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.log.Warn("error closing reader", zap.Error(err))
	}
}

// getMessageAndEmptyCart handles one event. A failing clear is retried until
// it succeeds or ctx ends; in the latter case the offset stays uncommitted
// and the event is delivered again.
func (p *Poller) getMessageAndEmptyCart(ctx context.Context) {
	m, err := p.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			p.log.Warn("error fetching message", zap.Error(err))
		}
		return
	}

	err = retry.Do(ctx, p.backoff, func(ctx context.Context) error {
		return p.emptyCart(ctx, m)
	}, func(attempt int, delay time.Duration, err error) {
		p.log.Warn("failed to clear cart, retrying",
			zap.Int64("offset", m.Offset), zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn("order event rejected", zap.Int64("offset", m.Offset), zap.Error(err))
	}

	if err := p.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		p.log.Warn("error committing offset", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

func (p *Poller) emptyCart(ctx context.Context, m kafka.Message) error {
	if et := eventType(m); et != "" && et != domain.EventTypeOrderPlaced {
		return nil
	}

	var event domain.OrderPlacedEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return retry.Permanent(fmt.Errorf("parse order event: %w", err))
	}
	if event.OwnerID == "" {
		return retry.Permanent(fmt.Errorf("order %s has no owner_id", event.OrderID))
	}

	if err := p.carts.ClearConsumed(ctx, event.OwnerID, event.ConsumedLines()); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrUnauthenticated) {
			return retry.Permanent(err)
		}
		return err
	}
	p.log.Debug("cart cleared for placed order",
		zap.String("order_id", event.OrderID), zap.String("owner_id", event.OwnerID))
	return nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
