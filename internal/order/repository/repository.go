package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrDuplicateOrder    = errors.New("order for this idempotency key already exists")
	ErrInvalidTransition = fmt.Errorf("invalid order status transition: %w", domain.ErrInvalidArgument)
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is an event committed together with the order it describes,
// waiting to be published.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	// CreateOrder inserts the order and its order.placed outbox event in one
	// serializable transaction. It fills in CreatedAt and UpdatedAt.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error)
	// GetOrder returns ErrOrderNotFound when the order belongs to someone else.
	GetOrder(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderUpdate) (*domain.Order, error)
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
