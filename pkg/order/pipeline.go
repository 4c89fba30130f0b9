// Package order turns finalized carts into immutable order records and
// drives their status lifecycle. Both the creation dual-write and every
// status transition run as multi-document transactions so the shop-scoped
// and user-scoped copies of an order cannot diverge.
package order

import (
	"context"
	"sort"
	"time"

	"github.com/example/foodcourt/pkg/cart"
	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the slice of the order repository the pipeline needs.
type Store interface {
	Create(ctx context.Context, order *models.Order) error
	Transition(ctx context.Context, orderID string, target models.OrderStatus, updatedBy string) error
}

// Pipeline converts a cart plus a customer snapshot into a persisted
// NewOrder visible under both scopes.
type Pipeline struct {
	orders Store
	logger *zap.Logger
	now    func() time.Time
}

func NewPipeline(orders Store, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		orders: orders,
		logger: logger,
		now:    time.Now,
	}
}

// Submit validates the cart, recomputes totals from the current item map
// (a previously displayed total is never trusted), writes the order under
// both scopes, and clears the cart on success. Validation failures have
// no side effects.
func (p *Pipeline) Submit(ctx context.Context, userID string, handle *cart.Handle, customer models.UserSnapshot) (*models.Order, error) {
	if userID == "" {
		return nil, fault.Validation("user not authenticated")
	}

	state := handle.Snapshot()
	if state.Empty() {
		return nil, fault.Validation("cart is empty")
	}
	if state.ShopName == "" {
		return nil, fault.Validation("cart is not bound to a shop")
	}

	subtotal := state.Subtotal()
	tax := subtotal * models.TaxRate

	order := &models.Order{
		OrderID:    uuid.NewString(),
		UserID:     userID,
		ShopName:   state.ShopName,
		Items:      lines(state.Items),
		Subtotal:   subtotal,
		Tax:        tax,
		GrandTotal: subtotal + tax,
		Status:     models.StatusNewOrder,
		Customer:   customer,
		CreatedAt:  p.now(),
	}

	if err := p.orders.Create(ctx, order); err != nil {
		p.logger.Error("order submission failed",
			zap.String("order_id", order.OrderID),
			zap.String("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	p.logger.Info("order submitted",
		zap.String("order_id", order.OrderID),
		zap.String("shop", order.ShopName),
		zap.Float64("grand_total", order.GrandTotal))

	handle.Clear(ctx)
	return order, nil
}

// lines flattens the item map into a stable, name-ordered list.
func lines(items map[string]models.CartItem) []models.OrderLine {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]models.OrderLine, 0, len(items))
	for _, name := range names {
		item := items[name]
		result = append(result, models.OrderLine{
			Name:     name,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return result
}
