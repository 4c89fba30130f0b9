// Package cart holds the shopper's in-progress selection. Mutations apply
// to in-memory state synchronously so the UI sees them immediately; a
// trailing-edge debounced write persists the cart to the store. The
// in-memory cart stays authoritative for the session regardless of write
// outcome: persistence failures are logged, never retried, never surfaced.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"go.uber.org/zap"
)

// Store is the persistent cart document location, carts/{userId}.
type Store interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Upsert(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

// Cache is the short-lived cart copy used for fast reloads.
type Cache interface {
	GetCachedCart(ctx context.Context, userID string) (*models.Cart, error)
	CacheCart(ctx context.Context, cart *models.Cart) error
	DropCachedCart(ctx context.Context, userID string) error
}

// ShopRef identifies the outlet a cart binds to on its first item.
type ShopRef struct {
	ID      string
	Name    string
	Address string
}

// Aggregator hands out one Handle per cart owner and owns the debounce
// scheduler that coalesces their flushes.
type Aggregator struct {
	store  Store
	cache  Cache
	logger *zap.Logger
	flush  *debouncer

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewAggregator(store Store, cache Cache, window time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:   store,
		cache:   cache,
		logger:  logger,
		flush:   newDebouncer(window),
		handles: make(map[string]*Handle),
	}
}

// Handle returns the owner's cart handle, loading persisted state on first
// access. A missing document yields an empty cart.
func (a *Aggregator) Handle(ctx context.Context, userID string) (*Handle, error) {
	a.mu.Lock()
	if h, ok := a.handles[userID]; ok {
		a.mu.Unlock()
		return h, nil
	}
	a.mu.Unlock()

	state, err := a.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if h, ok := a.handles[userID]; ok {
		return h, nil // lost the race, keep the established handle
	}
	h := &Handle{agg: a, state: state}
	a.handles[userID] = h
	return h, nil
}

// drop forgets the owner's handle so the map does not grow with every
// customer the process ever served. The next access reloads from storage.
func (a *Aggregator) drop(userID string) {
	a.mu.Lock()
	delete(a.handles, userID)
	a.mu.Unlock()
}

func (a *Aggregator) load(ctx context.Context, userID string) (*models.Cart, error) {
	if cached, err := a.cache.GetCachedCart(ctx, userID); err == nil {
		if cached.Items == nil {
			cached.Items = make(map[string]models.CartItem)
		}
		return cached, nil
	}

	state, err := a.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return &models.Cart{UserID: userID, Items: make(map[string]models.CartItem)}, nil
		}
		return nil, err
	}
	if state.Items == nil {
		state.Items = make(map[string]models.CartItem)
	}
	return state, nil
}

// Stop cancels all pending flushes. State not yet persisted is lost,
// which is the accepted best-effort durability of the cart.
func (a *Aggregator) Stop() {
	a.flush.Stop()
}

func (a *Aggregator) persist(snapshot models.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.store.Upsert(ctx, &snapshot); err != nil {
		a.logger.Warn("cart persistence failed",
			zap.String("user_id", snapshot.UserID),
			zap.Error(err))
		return
	}
	if err := a.cache.CacheCart(ctx, &snapshot); err != nil {
		a.logger.Warn("cart cache refresh failed",
			zap.String("user_id", snapshot.UserID),
			zap.Error(err))
	}
}

// Handle is one owner's cart. All mutations are synchronous on the
// in-memory state and schedule a debounced store write keyed by owner.
type Handle struct {
	agg *Aggregator

	mu    sync.Mutex
	state *models.Cart
}

// AddItem inserts the item at quantity 1 or increments an existing one.
// The first item added to an empty cart binds the cart to its shop.
func (h *Handle) AddItem(name string, price float64, shop ShopRef) {
	h.mu.Lock()
	if h.state.Empty() {
		h.state.ShopID = shop.ID
		h.state.ShopName = shop.Name
		h.state.ShopAddress = shop.Address
	}
	item := h.state.Items[name]
	item.Price = price
	item.Quantity++
	h.state.Items[name] = item
	h.mu.Unlock()

	h.scheduleFlush()
}

// ChangeQuantity applies delta to the named item. A quantity reaching
// zero removes the entry entirely. Unknown names are ignored.
func (h *Handle) ChangeQuantity(name string, delta int) {
	h.mu.Lock()
	item, ok := h.state.Items[name]
	if ok {
		item.Quantity += delta
		if item.Quantity <= 0 {
			delete(h.state.Items, name)
		} else {
			h.state.Items[name] = item
		}
	}
	h.mu.Unlock()

	if ok {
		h.scheduleFlush()
	}
}

func (h *Handle) RemoveItem(name string) {
	h.mu.Lock()
	_, ok := h.state.Items[name]
	delete(h.state.Items, name)
	h.mu.Unlock()

	if ok {
		h.scheduleFlush()
	}
}

// SetShop rebinds the cart's shop. Intended for the empty-cart case;
// items already present keep their prices.
func (h *Handle) SetShop(shop ShopRef) {
	h.mu.Lock()
	h.state.ShopID = shop.ID
	h.state.ShopName = shop.Name
	h.state.ShopAddress = shop.Address
	h.mu.Unlock()

	h.scheduleFlush()
}

// Clear empties the cart, drops any pending flush, releases the handle,
// and best-effort removes the persisted document. Called on checkout
// completion.
func (h *Handle) Clear(ctx context.Context) {
	h.mu.Lock()
	userID := h.state.UserID
	h.state.Items = make(map[string]models.CartItem)
	h.state.ShopID = ""
	h.state.ShopName = ""
	h.state.ShopAddress = ""
	h.mu.Unlock()

	h.agg.flush.Cancel(userID)
	h.agg.drop(userID)

	if err := h.agg.store.Delete(ctx, userID); err != nil {
		h.agg.logger.Warn("cart delete failed", zap.String("user_id", userID), zap.Error(err))
	}
	if err := h.agg.cache.DropCachedCart(ctx, userID); err != nil {
		h.agg.logger.Warn("cart cache drop failed", zap.String("user_id", userID), zap.Error(err))
	}
}

// Snapshot returns a deep copy of the current state.
func (h *Handle) Snapshot() models.Cart {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.copyLocked()
}

// Flush persists the current state immediately, bypassing the debounce
// window. The checkout path uses it so the submitted cart is never stale.
func (h *Handle) Flush(ctx context.Context) error {
	h.mu.Lock()
	snapshot := h.copyLocked()
	userID := h.state.UserID
	h.mu.Unlock()

	h.agg.flush.Cancel(userID)
	return h.agg.store.Upsert(ctx, &snapshot)
}

func (h *Handle) scheduleFlush() {
	h.mu.Lock()
	snapshot := h.copyLocked()
	userID := h.state.UserID
	h.mu.Unlock()

	h.agg.flush.Schedule(userID, func() {
		h.agg.persist(snapshot)
	})
}

func (h *Handle) copyLocked() models.Cart {
	copied := *h.state
	copied.Items = make(map[string]models.CartItem, len(h.state.Items))
	for name, item := range h.state.Items {
		copied.Items[name] = item
	}
	copied.UpdatedAt = time.Now()
	return copied
}
