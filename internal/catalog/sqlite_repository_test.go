package catalog

import (
	"context"
	"testing"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	repo, err := NewRepository(":memory:")
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations("./migrations"))

	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestList_ReturnsSeededProducts(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
	assert.Equal(t, "Whey Protein Isolado", products[0].Name)
}

func TestGet_Found(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.True(t, decimal.RequireFromString("89.90").Equal(p.Price))
	assert.Equal(t, domain.Some(50), p.Stock)
	assert.True(t, p.ImageRef.IsPresent())
}

func TestGet_OptionalColumnsAbsent(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, p.Stock.IsPresent())
	assert.False(t, p.ImageRef.IsPresent())
}

func TestGet_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Get(context.Background(), 999)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetMany(t *testing.T) {
	repo := setupTestDB(t)

	products, err := repo.GetMany(context.Background(), []int64{1, 3, 999})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Contains(t, products, int64(1))
	assert.Contains(t, products, int64(3))
	assert.NotContains(t, products, int64(999))

	empty, err := repo.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdate_OnlyPresentFields(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	before, err := repo.Get(ctx, 2)
	require.NoError(t, err)

	after, err := repo.Update(ctx, 2, ProductUpdate{
		Price: domain.Some(decimal.RequireFromString("42.50")),
	})
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("42.50").Equal(after.Price))
	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.Stock, after.Stock)
	assert.Equal(t, before.Category, after.Category)
}

func TestUpdate_Empty(t *testing.T) {
	repo := setupTestDB(t)

	p, err := repo.Update(context.Background(), 1, ProductUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Whey Protein Isolado", p.Name)
}

func TestUpdate_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Update(context.Background(), 999, ProductUpdate{Name: domain.Some("ghost")})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdate_NegativePrice(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.Update(context.Background(), 1, ProductUpdate{Price: domain.Some(decimal.NewFromInt(-1))})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
