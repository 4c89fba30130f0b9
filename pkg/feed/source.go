package feed

import (
	"context"
	"fmt"

	"github.com/example/foodcourt/pkg/models"
	"github.com/example/foodcourt/pkg/repository"
)

// repositorySource adapts the order repository's scoped queries and
// change streams to the Source interface.
type repositorySource struct {
	orders repository.OrderRepository
}

func NewRepositorySource(orders repository.OrderRepository) Source {
	return &repositorySource{orders: orders}
}

func (s *repositorySource) List(ctx context.Context, scope Scope) ([]models.Order, error) {
	switch scope.Kind {
	case ScopeOutlet:
		return s.orders.ListByShop(ctx, scope.ID)
	case ScopeCustomer:
		return s.orders.ListByUser(ctx, scope.ID)
	default:
		return nil, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
}

func (s *repositorySource) Watch(ctx context.Context, scope Scope) (<-chan struct{}, func(), error) {
	switch scope.Kind {
	case ScopeOutlet:
		return s.orders.WatchShop(ctx, scope.ID)
	case ScopeCustomer:
		return s.orders.WatchUser(ctx, scope.ID)
	default:
		return nil, nil, fmt.Errorf("unknown scope kind %q", scope.Kind)
	}
}
