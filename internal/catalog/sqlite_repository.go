package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

const productColumns = `id, name, category, price, stock, image_ref`

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite has a single writer, and ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p        domain.Product
		stock    sql.NullInt64
		imageRef sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &stock, &imageRef); err != nil {
		return domain.Product{}, err
	}
	if stock.Valid {
		p.Stock = domain.Some(int(stock.Int64))
	}
	if imageRef.Valid {
		p.ImageRef = domain.Some(imageRef.String)
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// GetMany reads all requested products in one statement, so the result is a
// single consistent view of the catalog.
func (r *Repository) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	result := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		result[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return result, nil
}

// Update applies the fields present in u and returns the updated product.
func (r *Repository) Update(ctx context.Context, id int64, u ProductUpdate) (domain.Product, error) {
	if u.IsEmpty() {
		return r.Get(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if v, ok := u.Name.Get(); ok {
		sets = append(sets, "name = ?")
		args = append(args, v)
	}
	if v, ok := u.Category.Get(); ok {
		sets = append(sets, "category = ?")
		args = append(args, v)
	}
	if v, ok := u.Price.Get(); ok {
		if v.IsNegative() {
			return domain.Product{}, fmt.Errorf("price %s must be non-negative: %w", v, domain.ErrInvalidArgument)
		}
		sets = append(sets, "price = ?")
		args = append(args, v.String())
	}
	if v, ok := u.Stock.Get(); ok {
		sets = append(sets, "stock = ?")
		args = append(args, v)
	}
	if v, ok := u.ImageRef.Get(); ok {
		sets = append(sets, "image_ref = ?")
		args = append(args, v)
	}
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if n == 0 {
		return domain.Product{}, ErrProductNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
