package feed

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource keeps one logical order set and answers both scopes from it,
// mimicking the dual-written collections.
type fakeSource struct {
	m       sync.Mutex
	orders  map[string]*models.Order
	watches map[string][]chan struct{}
	listErr error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		orders:  make(map[string]*models.Order),
		watches: make(map[string][]chan struct{}),
	}
}

func (f *fakeSource) List(_ context.Context, scope Scope) ([]models.Order, error) {
	f.m.Lock()
	defer f.m.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	var result []models.Order
	for _, o := range f.orders {
		if scope.Kind == ScopeOutlet && o.ShopName == scope.ID ||
			scope.Kind == ScopeCustomer && o.UserID == scope.ID {
			result = append(result, *o)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeSource) Watch(_ context.Context, scope Scope) (<-chan struct{}, func(), error) {
	f.m.Lock()
	defer f.m.Unlock()

	ch := make(chan struct{}, 4)
	key := scope.String()
	f.watches[key] = append(f.watches[key], ch)

	cancel := func() {
		f.m.Lock()
		defer f.m.Unlock()
		for i, w := range f.watches[key] {
			if w == ch {
				f.watches[key] = append(f.watches[key][:i], f.watches[key][i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel, nil
}

func (f *fakeSource) put(o models.Order) {
	f.m.Lock()
	copied := o
	f.orders[o.OrderID] = &copied
	watchers := append(
		append([]chan struct{}{}, f.watches[OutletScope(o.ShopName).String()]...),
		f.watches[CustomerScope(o.UserID).String()]...)
	f.m.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (f *fakeSource) setStatus(orderID string, status models.OrderStatus) {
	f.m.Lock()
	o := f.orders[orderID]
	f.m.Unlock()
	updated := *o
	updated.Status = status
	f.put(updated)
}

func nextEvent(t *testing.T, sub *Subscription) SnapshotEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events:
		require.True(t, ok, "events channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot event")
		return SnapshotEvent{}
	}
}

func testOrder(id string, status models.OrderStatus, createdAt time.Time) models.Order {
	return models.Order{
		OrderID:   id,
		UserID:    "user-1",
		ShopName:  "Foo Kitchen",
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestSubscribeDeliversConfirmedSnapshot(t *testing.T) {
	source := newFakeSource()
	source.put(testOrder("order-1", models.StatusNewOrder, time.Now()))
	mgr := NewManager(source, zap.NewNop())

	sub, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	defer sub.Cancel()

	ev := nextEvent(t, sub)
	assert.Equal(t, Confirmed, ev.Provenance)
	require.Len(t, ev.Orders, 1)
	assert.Equal(t, models.StatusNewOrder, ev.Orders[0].Status)
}

func TestDualScopeViewsConverge(t *testing.T) {
	source := newFakeSource()
	mgr := NewManager(source, zap.NewNop())

	outletSub, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	defer outletSub.Cancel()
	customerSub, err := mgr.Subscribe(context.Background(), CustomerScope("user-1"))
	require.NoError(t, err)
	defer customerSub.Cancel()

	// Initial server reads: both empty.
	assert.Empty(t, nextEvent(t, outletSub).Orders)
	assert.Empty(t, nextEvent(t, customerSub).Orders)

	// A new order becomes visible in both scopes with identical status.
	source.put(testOrder("order-1", models.StatusNewOrder, time.Now()))

	outletView := nextEvent(t, outletSub)
	customerView := nextEvent(t, customerSub)
	require.Len(t, outletView.Orders, 1)
	require.Len(t, customerView.Orders, 1)
	assert.Equal(t, models.StatusNewOrder, outletView.Orders[0].Status)
	assert.Equal(t, outletView.Orders[0].Status, customerView.Orders[0].Status)

	// After the outlet transitions it, both views converge on Accepted.
	source.setStatus("order-1", models.StatusAccepted)

	outletView = nextEvent(t, outletSub)
	customerView = nextEvent(t, customerSub)
	assert.Equal(t, models.StatusAccepted, outletView.Orders[0].Status)
	assert.Equal(t, models.StatusAccepted, customerView.Orders[0].Status)
}

func TestSnapshotIsFullReplacement(t *testing.T) {
	source := newFakeSource()
	now := time.Now()
	source.put(testOrder("order-1", models.StatusNewOrder, now))
	mgr := NewManager(source, zap.NewNop())

	sub, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	defer sub.Cancel()

	first := nextEvent(t, sub)
	require.Len(t, first.Orders, 1)

	source.put(testOrder("order-2", models.StatusNewOrder, now.Add(time.Second)))

	second := nextEvent(t, sub)
	require.Len(t, second.Orders, 2, "each snapshot is the complete result set")
	assert.Equal(t, "order-2", second.Orders[0].OrderID, "newest first")
}

func TestNewSubscriberPrimedFromCache(t *testing.T) {
	source := newFakeSource()
	source.put(testOrder("order-1", models.StatusNewOrder, time.Now()))
	mgr := NewManager(source, zap.NewNop())

	first, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	nextEvent(t, first) // Confirmed, fills the manager cache
	first.Cancel()

	second, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	defer second.Cancel()

	cached := nextEvent(t, second)
	assert.Equal(t, FromCache, cached.Provenance,
		"cached replay must be distinguishable from server confirmation")
	confirmed := nextEvent(t, second)
	assert.Equal(t, Confirmed, confirmed.Provenance)
	assert.Equal(t, cached.Orders, confirmed.Orders)
}

func TestQueryFailureDeliversFailedEvent(t *testing.T) {
	source := newFakeSource()
	source.listErr = fault.Unavailable("list orders", assert.AnError)
	mgr := NewManager(source, zap.NewNop())

	sub, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	defer sub.Cancel()

	ev := nextEvent(t, sub)
	assert.Equal(t, Failed, ev.Provenance)
	assert.ErrorIs(t, ev.Err, fault.ErrUnavailable)
	assert.Nil(t, ev.Orders)
}

func TestCancelTearsDownSubscription(t *testing.T) {
	source := newFakeSource()
	mgr := NewManager(source, zap.NewNop())

	sub, err := mgr.Subscribe(context.Background(), OutletScope("Foo Kitchen"))
	require.NoError(t, err)
	nextEvent(t, sub)

	sub.Cancel()
	sub.Cancel() // idempotent

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Events:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "events channel must close after cancel")

	source.m.Lock()
	defer source.m.Unlock()
	assert.Empty(t, source.watches[OutletScope("Foo Kitchen").String()],
		"watch must be released on cancel")
}
