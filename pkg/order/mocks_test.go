package order

import (
	"context"
	"sync"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
)

// memOrders implements Store with the repository's transactional
// contract: creation lands in both scopes or neither, transitions are
// idempotent on the target status and reject illegal edges.
type memOrders struct {
	m          sync.Mutex
	byShop     map[string]map[string]*models.Order
	byUser     map[string]map[string]*models.Order
	createErr  error
	transition []error // consumed per call when non-empty
	race       func()  // runs once between the status read and the write
	calls      int
}

func newMemOrders() *memOrders {
	return &memOrders{
		byShop: make(map[string]map[string]*models.Order),
		byUser: make(map[string]map[string]*models.Order),
	}
}

func (s *memOrders) Create(_ context.Context, o *models.Order) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	copied := *o
	if s.byShop[o.ShopName] == nil {
		s.byShop[o.ShopName] = make(map[string]*models.Order)
	}
	if s.byUser[o.UserID] == nil {
		s.byUser[o.UserID] = make(map[string]*models.Order)
	}
	s.byShop[o.ShopName][o.OrderID] = &copied
	s.byUser[o.UserID][o.OrderID] = &copied
	return nil
}

func (s *memOrders) Transition(_ context.Context, orderID string, target models.OrderStatus, updatedBy string) error {
	s.m.Lock()
	defer s.m.Unlock()
	s.calls++
	if len(s.transition) > 0 {
		err := s.transition[0]
		s.transition = s.transition[1:]
		if err != nil {
			return err
		}
	}

	var current *models.Order
	for _, orders := range s.byShop {
		if o, ok := orders[orderID]; ok {
			current = o
			break
		}
	}
	if current == nil {
		return fault.NotFound("order", orderID)
	}
	if current.Status == target {
		return nil
	}
	if !current.Status.CanTransition(target) {
		return fault.Validation("cannot transition order %s from %s to %s",
			orderID, current.Status, target)
	}

	// A concurrent writer between the read and the filtered update leaves
	// the precondition unmatched, which the repository reports as Conflict.
	read := current.Status
	if s.race != nil {
		s.race()
		s.race = nil
	}
	if current.Status != read {
		return fault.Conflict("order %s changed concurrently", orderID)
	}

	current.Status = target
	current.UpdatedBy = updatedBy
	return nil
}

func (s *memOrders) shopOrder(shop, orderID string) *models.Order {
	s.m.Lock()
	defer s.m.Unlock()
	if orders, ok := s.byShop[shop]; ok {
		return orders[orderID]
	}
	return nil
}

func (s *memOrders) userOrder(userID, orderID string) *models.Order {
	s.m.Lock()
	defer s.m.Unlock()
	if orders, ok := s.byUser[userID]; ok {
		return orders[orderID]
	}
	return nil
}

func (s *memOrders) callCount() int {
	s.m.Lock()
	defer s.m.Unlock()
	return s.calls
}
