package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/beastsupply/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAccessor struct {
	err   error
	calls int
}

func (s *stubAccessor) Get(_ context.Context, id int64) (domain.Product, error) {
	s.calls++
	if s.err != nil {
		return domain.Product{}, s.err
	}
	return domain.Product{ID: id}, nil
}

func (s *stubAccessor) GetMany(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		out[id] = domain.Product{ID: id}
	}
	return out, nil
}

func TestBreakerAccessor_PassesThrough(t *testing.T) {
	stub := &stubAccessor{}
	b := NewBreakerAccessor(stub, zap.NewNop())

	p, err := b.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)

	many, err := b.GetMany(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestBreakerAccessor_NotFoundDoesNotTrip(t *testing.T) {
	stub := &stubAccessor{err: ErrProductNotFound}
	b := NewBreakerAccessor(stub, zap.NewNop())

	for i := 0; i < 10; i++ {
		_, err := b.Get(context.Background(), 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	}
	assert.Equal(t, 10, stub.calls)
}

func TestBreakerAccessor_OpensOnFailures(t *testing.T) {
	stub := &stubAccessor{err: errors.New("disk I/O error")}
	b := NewBreakerAccessor(stub, zap.NewNop())

	for i := 0; i < 5; i++ {
		_, err := b.GetMany(context.Background(), []int64{1})
		require.Error(t, err)
	}

	_, err := b.GetMany(context.Background(), []int64{1})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, stub.calls)
}
