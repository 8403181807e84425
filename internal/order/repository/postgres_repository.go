package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"

	idempotencyConstraint = "orders_owner_idempotency_key"

	orderColumns = `id, owner_id, idempotency_key, customer_info, payment_method, shipping_method,
	          items, subtotal, shipping_cost, discount, total, status, settlement_key, created_at, updated_at`
)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	order.CreatedAt = now
	order.UpdatedAt = now

	customerJSON, err := json.Marshal(order.CustomerInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal customer info: %w", err)
	}
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	eventJSON, err := json.Marshal(domain.NewOrderPlacedEvent(order))
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var idempotencyKey sql.NullString
	if key, ok := order.IdempotencyKey.Get(); ok {
		idempotencyKey = sql.NullString{String: key, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		order.ID,
		order.OwnerID,
		idempotencyKey,
		customerJSON,
		order.PaymentMethod,
		order.ShippingMethod,
		itemsJSON,
		order.Subtotal,
		order.ShippingCost,
		order.Discount,
		order.Total,
		order.Status,
		order.SettlementKey,
		order.CreatedAt,
		order.UpdatedAt)
	if err != nil {
		return translateError("insert order", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, $4)`,
		order.ID.String(),
		domain.EventTypeOrderPlaced,
		eventJSON,
		now)
	if err != nil {
		return translateError("insert outbox event", err)
	}

	if err := tx.Commit(); err != nil {
		return translateError("commit order", err)
	}
	return nil
}

func (r *Repository) GetOrderByIdempotencyKey(ctx context.Context, ownerID, key string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 AND idempotency_key = $2`,
		ownerID, key)
	return scanOrderRow(row, "query order by idempotency key")
}

func (r *Repository) GetOrder(ctx context.Context, ownerID string, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	return scanOrderRow(row, "query order by id")
}

func (r *Repository) ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC, id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("query orders by owner: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return orders, nil
}

// UpdateOrder applies the present fields of update under a row lock. Setting
// the status the order already has is a no-op.
func (r *Repository) UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderUpdate) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	order, err := scanOrderRow(row, "lock order")
	if err != nil {
		return nil, err
	}

	next, ok := update.Status.Get()
	if !ok || next == order.Status {
		return order, nil
	}
	if order.Status.IsTerminal() {
		return nil, fmt.Errorf("order is already %s: %w", order.Status, ErrInvalidTransition)
	}
	if !domain.CanTransitionTo(order.Status, next) {
		return nil, fmt.Errorf("%s -> %s: %w", order.Status, next, ErrInvalidTransition)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		next, now, id); err != nil {
		return nil, translateError("update order status", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, translateError("commit order update", err)
	}

	order.Status = next
	order.UpdatedAt = now
	return order, nil
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, aggregate_id, event_type, payload, created_at
		 FROM outbox_events WHERE processed_at IS NULL ORDER BY id LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW() WHERE id = $1 AND processed_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %d processed: %w", id, err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderRow(row *sql.Row, op string) (*domain.Order, error) {
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}

func scanOrder(s rowScanner) (*domain.Order, error) {
	var (
		order          domain.Order
		idempotencyKey sql.NullString
		customerJSON   []byte
		itemsJSON      []byte
	)
	err := s.Scan(
		&order.ID,
		&order.OwnerID,
		&idempotencyKey,
		&customerJSON,
		&order.PaymentMethod,
		&order.ShippingMethod,
		&itemsJSON,
		&order.Subtotal,
		&order.ShippingCost,
		&order.Discount,
		&order.Total,
		&order.Status,
		&order.SettlementKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if idempotencyKey.Valid {
		order.IdempotencyKey = domain.Some(idempotencyKey.String)
	}
	if err := json.Unmarshal(customerJSON, &order.CustomerInfo); err != nil {
		return nil, fmt.Errorf("unmarshal customer info: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return &order, nil
}

func translateError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == pqUniqueViolation && pqErr.Constraint == idempotencyConstraint:
			return ErrDuplicateOrder
		case pqErr.Code == pqSerializationFailure:
			return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistenceConflict, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
