package order

import (
	"context"
	"errors"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"go.uber.org/zap"
)

// StateMachine applies status transitions. Graph legality, idempotence on
// retried targets, and the concurrent-writer precondition live in the
// repository transaction; this layer adds the single automatic retry on
// permission errors before the failure is surfaced.
type StateMachine struct {
	orders     Store
	logger     *zap.Logger
	retryDelay time.Duration
}

func NewStateMachine(orders Store, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		orders:     orders,
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Transition moves orderID to target on behalf of updatedBy. NotFound is
// terminal; a permission error gets exactly one retry after a fixed
// delay; anything else is returned as-is for the caller to surface.
func (m *StateMachine) Transition(ctx context.Context, orderID string, target models.OrderStatus, updatedBy string) error {
	err := m.orders.Transition(ctx, orderID, target, updatedBy)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fault.ErrPermission) {
		return err
	}

	m.logger.Warn("transition rejected, retrying once",
		zap.String("order_id", orderID),
		zap.String("target", string(target)),
		zap.Error(err))

	select {
	case <-time.After(m.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	return m.orders.Transition(ctx, orderID, target, updatedBy)
}
