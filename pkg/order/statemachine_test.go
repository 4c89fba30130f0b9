package order

import (
	"context"
	"testing"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seedOrder(t *testing.T, store *memOrders, status models.OrderStatus) *models.Order {
	t.Helper()
	o := &models.Order{
		OrderID:   "order-1",
		UserID:    "user-1",
		ShopName:  "Foo Kitchen",
		Status:    status,
		CreatedAt: time.Now(),
	}
	require.NoError(t, store.Create(context.Background(), o))
	return o
}

func newTestMachine(store Store) *StateMachine {
	m := NewStateMachine(store, zap.NewNop())
	m.retryDelay = time.Millisecond
	return m
}

func TestTransitionAppliesToBothScopes(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAccepted, store.shopOrder("Foo Kitchen", "order-1").Status)
	assert.Equal(t, models.StatusAccepted, store.userOrder("user-1", "order-1").Status)
	assert.Equal(t, "owner-9", store.shopOrder("Foo Kitchen", "order-1").UpdatedBy)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "order-1", models.StatusDelivered, "owner-9")
	require.ErrorIs(t, err, fault.ErrValidation)
	assert.Equal(t, models.StatusNewOrder, store.shopOrder("Foo Kitchen", "order-1").Status)
}

func TestTransitionFromTerminalStateFails(t *testing.T) {
	for _, terminal := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			store := newMemOrders()
			seedOrder(t, store, terminal)
			machine := newTestMachine(store)

			err := machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9")
			require.ErrorIs(t, err, fault.ErrValidation)
		})
	}
}

func TestTransitionRetriedTargetIsIdempotent(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	machine := newTestMachine(store)

	require.NoError(t, machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9"))
	require.NoError(t, machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9"),
		"retrying an applied transition must succeed without effect")

	assert.Equal(t, models.StatusAccepted, store.shopOrder("Foo Kitchen", "order-1").Status)
}

func TestTransitionRetriesOnceOnPermissionError(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	store.transition = []error{fault.Permission("transition order", assert.AnError)}
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9")
	require.NoError(t, err)
	assert.Equal(t, 2, store.callCount())
	assert.Equal(t, models.StatusAccepted, store.shopOrder("Foo Kitchen", "order-1").Status)
}

func TestTransitionPermissionFailureSurfacesAfterOneRetry(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	store.transition = []error{
		fault.Permission("transition order", assert.AnError),
		fault.Permission("transition order", assert.AnError),
	}
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9")
	require.ErrorIs(t, err, fault.ErrPermission)
	assert.Equal(t, 2, store.callCount(), "exactly one automatic retry")
}

func TestTransitionConcurrentWriterSurfacesConflict(t *testing.T) {
	store := newMemOrders()
	seedOrder(t, store, models.StatusNewOrder)
	// Another operator cancels the order between the status read and the
	// filtered write, so the precondition no longer matches.
	store.race = func() {
		store.byShop["Foo Kitchen"]["order-1"].Status = models.StatusCancelled
	}
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "order-1", models.StatusAccepted, "owner-9")
	require.ErrorIs(t, err, fault.ErrConflict)
	assert.Equal(t, 1, store.callCount(), "conflicts must not be retried")
	assert.Equal(t, models.StatusCancelled, store.shopOrder("Foo Kitchen", "order-1").Status,
		"the concurrent writer's status must stand")
}

func TestTransitionNotFoundIsTerminal(t *testing.T) {
	store := newMemOrders()
	machine := newTestMachine(store)

	err := machine.Transition(context.Background(), "missing", models.StatusAccepted, "owner-9")
	require.ErrorIs(t, err, fault.ErrNotFound)
	assert.Equal(t, 1, store.callCount(), "not found must not be retried")
}
