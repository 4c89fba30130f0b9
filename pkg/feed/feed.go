// Package feed maintains live order lists per viewer. Each subscription
// owns a scope (one outlet or one customer), reconciles incoming
// snapshots by full replacement of the local list, and tags every
// delivery with its provenance so consumers can tell a cached replay
// from a server-confirmed change.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/foodcourt/pkg/models"
	"go.uber.org/zap"
)

type ScopeKind string

const (
	ScopeOutlet   ScopeKind = "outlet"
	ScopeCustomer ScopeKind = "customer"
)

// Scope identifies one viewer's order list: outlet:<name> or
// customer:<userId>.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func OutletScope(shopName string) Scope {
	return Scope{Kind: ScopeOutlet, ID: shopName}
}

func CustomerScope(userID string) Scope {
	return Scope{Kind: ScopeCustomer, ID: userID}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

type Provenance string

const (
	// FromCache marks a snapshot replayed from local memory before the
	// server has been consulted.
	FromCache Provenance = "cache"
	// Confirmed marks a snapshot read from the server.
	Confirmed Provenance = "server"
	// Failed marks a delivery that carries an error instead of orders.
	Failed Provenance = "failed"
)

// SnapshotEvent is one delivery on a subscription. Orders is the complete
// result set for the scope's query, newest first; consumers replace their
// local list wholesale.
type SnapshotEvent struct {
	Provenance Provenance
	Orders     []models.Order
	Err        error
}

// Source is the query-and-notify surface the manager runs on.
type Source interface {
	List(ctx context.Context, scope Scope) ([]models.Order, error)
	Watch(ctx context.Context, scope Scope) (<-chan struct{}, func(), error)
}

// Manager hands out subscriptions and remembers the last confirmed list
// per scope so a fresh subscriber gets an immediate cached snapshot.
type Manager struct {
	source Source
	logger *zap.Logger

	mu   sync.RWMutex
	last map[string][]models.Order
}

func NewManager(source Source, logger *zap.Logger) *Manager {
	return &Manager{
		source: source,
		logger: logger,
		last:   make(map[string][]models.Order),
	}
}

// List performs a one-shot server read for scope and refreshes the
// cached list used to prime new subscribers.
func (m *Manager) List(ctx context.Context, scope Scope) ([]models.Order, error) {
	orders, err := m.source.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.last[scope.String()] = orders
	m.mu.Unlock()
	return orders, nil
}

// Subscription is an explicit handle over one live query. It must be
// cancelled when the owning view goes away or events keep flowing to a
// viewer nobody observes.
type Subscription struct {
	Events <-chan SnapshotEvent

	scope      Scope
	cancelOnce sync.Once
	cancel     context.CancelFunc
}

func (s *Subscription) Scope() Scope {
	return s.scope
}

// Cancel tears the subscription down. Idempotent; the Events channel is
// closed once the pump drains.
func (s *Subscription) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// Subscribe establishes the live query for scope. Delivery order: the
// last known list (FromCache) if one exists, then a server read
// (Confirmed), then one Confirmed snapshot per store change notification.
// Query failures surface as Failed events and leave the last confirmed
// list cached.
func (m *Manager) Subscribe(ctx context.Context, scope Scope) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	changes, stopWatch, err := m.source.Watch(subCtx, scope)
	if err != nil {
		cancel()
		return nil, err
	}

	events := make(chan SnapshotEvent, 4)
	sub := &Subscription{Events: events, scope: scope, cancel: cancel}

	go m.pump(subCtx, scope, changes, stopWatch, events)

	m.logger.Info("subscription opened", zap.String("scope", scope.String()))
	return sub, nil
}

func (m *Manager) pump(ctx context.Context, scope Scope, changes <-chan struct{}, stopWatch func(), events chan<- SnapshotEvent) {
	defer close(events)
	defer stopWatch()
	defer m.logger.Info("subscription closed", zap.String("scope", scope.String()))

	if cached, ok := m.cached(scope); ok {
		if !m.deliver(ctx, events, SnapshotEvent{Provenance: FromCache, Orders: cached}) {
			return
		}
	}

	if !m.refresh(ctx, scope, events) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if !m.refresh(ctx, scope, events) {
				return
			}
		}
	}
}

// refresh queries the server and delivers a Confirmed snapshot, replacing
// the cached list. Reports false when the subscription should stop.
func (m *Manager) refresh(ctx context.Context, scope Scope, events chan<- SnapshotEvent) bool {
	orders, err := m.source.List(ctx, scope)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		m.logger.Warn("feed query failed",
			zap.String("scope", scope.String()),
			zap.Error(err))
		return m.deliver(ctx, events, SnapshotEvent{Provenance: Failed, Err: err})
	}

	m.mu.Lock()
	m.last[scope.String()] = orders
	m.mu.Unlock()

	return m.deliver(ctx, events, SnapshotEvent{Provenance: Confirmed, Orders: orders})
}

func (m *Manager) deliver(ctx context.Context, events chan<- SnapshotEvent, ev SnapshotEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) cached(scope Scope) ([]models.Order, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders, ok := m.last[scope.String()]
	return orders, ok
}
