package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionGraph(t *testing.T) {
	tests := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{StatusNewOrder, StatusAccepted, true},
		{StatusNewOrder, StatusCancelled, true},
		{StatusNewOrder, StatusPreparing, false},
		{StatusNewOrder, StatusDelivered, false},
		{StatusAccepted, StatusPreparing, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusReady, false},
		{StatusPreparing, StatusReady, true},
		{StatusPreparing, StatusCancelled, false},
		{StatusReady, StatusDelivered, true},
		{StatusDelivered, StatusAccepted, false},
		{StatusCancelled, StatusNewOrder, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())

	for _, target := range []OrderStatus{
		StatusNewOrder, StatusAccepted, StatusPreparing,
		StatusReady, StatusDelivered, StatusCancelled,
	} {
		assert.False(t, StatusDelivered.CanTransition(target))
		assert.False(t, StatusCancelled.CanTransition(target))
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusNewOrder.Valid())
	assert.False(t, OrderStatus("Shipped").Valid())
}

func TestCartSubtotal(t *testing.T) {
	cart := Cart{Items: map[string]CartItem{
		"Pizza": {Price: 200, Quantity: 2},
		"Coke":  {Price: 50, Quantity: 1},
	}}
	assert.InEpsilon(t, 450.0, cart.Subtotal(), 1e-9)
}
