package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusFulfilled, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusFulfilled, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusFulfilled, false},
		{OrderStatusFulfilled, OrderStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransitionTo(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.True(t, OrderStatusFulfilled.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("fulfilled")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusFulfilled, st)

	_, err = ParseOrderStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
