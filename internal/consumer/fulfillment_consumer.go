// Package consumer applies fulfillment decisions published by the
// warehouse to pending orders.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/beastsupply/storefront/internal/retry"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type StatusUpdater interface {
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

type Consumer struct {
	orders  StatusUpdater
	reader  MessageReader
	backoff retry.Policy
	log     *zap.Logger
}

// NewKafkaReader starts a new group at the earliest offset so no decision
// published before the first deploy is skipped.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
	})
}

func NewConsumer(orders StatusUpdater, reader MessageReader, log *zap.Logger) *Consumer {
	return &Consumer{
		orders:  orders,
		reader:  reader,
		backoff: retry.Policy{Initial: 200 * time.Millisecond, Max: 30 * time.Second},
		log:     log.Named("fulfillment-consumer"),
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

// processMessage applies one decision and commits its offset. Store failures
// are retried until they succeed or ctx ends; an uncommitted message is
// redelivered after restart.
func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("error reading message", zap.Error(err))
		}
		return
	}

	err = retry.Do(ctx, c.backoff, func(ctx context.Context) error {
		return c.apply(ctx, m)
	}, func(attempt int, delay time.Duration, err error) {
		c.log.Error("failed to update order status, retrying",
			zap.Int64("offset", m.Offset), zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("fulfillment event rejected", zap.Int64("offset", m.Offset), zap.Error(err))
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Warn("error committing offset", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

// apply returns nil for messages that can never be applied, after logging
// them, and a Permanent error for decisions the order refuses.
func (c *Consumer) apply(ctx context.Context, m kafka.Message) error {
	var event domain.FulfillmentEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("error parsing message", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	orderID, err := uuid.Parse(event.OrderID)
	if err != nil {
		c.log.Warn("invalid order_id", zap.String("order_id", event.OrderID), zap.Error(err))
		return nil
	}
	status, err := domain.ParseOrderStatus(event.Status)
	if err != nil {
		c.log.Warn("invalid status", zap.String("order_id", event.OrderID), zap.Error(err))
		return nil
	}

	if _, err := c.orders.UpdateStatus(ctx, orderID, status); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}
