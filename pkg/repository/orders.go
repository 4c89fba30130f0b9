package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepository owns both scopes of an order: the shop-keyed copy and
// the user-keyed copy. Every multi-document mutation goes through a Mongo
// transaction so the two read paths cannot diverge on partial failure.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByShop(ctx context.Context, shopName, orderID string) (*models.Order, error)
	GetByUser(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListByShop(ctx context.Context, shopName string) ([]models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	Transition(ctx context.Context, orderID string, target models.OrderStatus, updatedBy string) error
	WatchShop(ctx context.Context, shopName string) (<-chan struct{}, func(), error)
	WatchUser(ctx context.Context, userID string) (<-chan struct{}, func(), error)
}

type orderRepository struct {
	client     *mongo.Client
	shopOrders *mongo.Collection
	userOrders *mongo.Collection
}

func NewOrderRepository(m *MongoRepository) OrderRepository {
	return &orderRepository{
		client:     m.client,
		shopOrders: m.database.Collection(collShopOrders),
		userOrders: m.database.Collection(collUserOrders),
	}
}

// Create inserts the order into both scopes in one transaction. A crash
// can no longer leave the order visible to only one party.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	session, err := r.client.StartSession()
	if err != nil {
		return classify("create order", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.shopOrders.InsertOne(sc, order); err != nil {
			return nil, fmt.Errorf("failed to insert shop-scoped order: %w", err)
		}
		if _, err := r.userOrders.InsertOne(sc, order); err != nil {
			return nil, fmt.Errorf("failed to insert user-scoped order: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fault.Conflict("order %s already exists", order.OrderID)
		}
		return classify("create order", err)
	}
	return nil
}

func (r *orderRepository) GetByShop(ctx context.Context, shopName, orderID string) (*models.Order, error) {
	return r.getOne(ctx, r.shopOrders, bson.M{"_id": orderID, "shop_name": shopName}, orderID)
}

func (r *orderRepository) GetByUser(ctx context.Context, userID, orderID string) (*models.Order, error) {
	return r.getOne(ctx, r.userOrders, bson.M{"_id": orderID, "user_id": userID}, orderID)
}

func (r *orderRepository) getOne(ctx context.Context, coll *mongo.Collection, filter bson.M, orderID string) (*models.Order, error) {
	var order models.Order
	err := coll.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.NotFound("order", orderID)
		}
		return nil, classify("get order", err)
	}
	return &order, nil
}

func (r *orderRepository) ListByShop(ctx context.Context, shopName string) ([]models.Order, error) {
	return r.list(ctx, r.shopOrders, bson.M{"shop_name": shopName})
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return r.list(ctx, r.userOrders, bson.M{"user_id": userID})
}

func (r *orderRepository) list(ctx context.Context, coll *mongo.Collection, filter bson.M) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, classify("list orders", err)
	}
	return orders, nil
}

// Transition moves the order to target in both scopes atomically. The
// user id is resolved from the shop-scoped copy inside the transaction.
// Retries are idempotent: if the order already carries target the call
// succeeds without writing. An illegal edge is rejected outright; a legal
// edge whose precondition was raced away by a concurrent writer reports
// a conflict instead of silently overwriting.
func (r *orderRepository) Transition(ctx context.Context, orderID string, target models.OrderStatus, updatedBy string) error {
	if !target.Valid() {
		return fault.Validation("unknown order status %q", target)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return classify("transition order", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var current models.Order
		err := r.shopOrders.FindOne(sc, bson.M{"_id": orderID}).Decode(&current)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, fault.NotFound("order", orderID)
			}
			return nil, err
		}

		if current.Status == target {
			return nil, nil // retried transition, already applied
		}
		if !current.Status.CanTransition(target) {
			return nil, fault.Validation("cannot transition order %s from %s to %s",
				orderID, current.Status, target)
		}

		now := time.Now()
		filter := bson.M{"_id": orderID, "status": current.Status}
		update := bson.M{"$set": bson.M{
			"status":     target,
			"updated_at": now,
			"updated_by": updatedBy,
		}}

		res, err := r.shopOrders.UpdateOne(sc, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update shop-scoped order: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, fault.Conflict("order %s changed concurrently", orderID)
		}

		res, err = r.userOrders.UpdateOne(sc, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update user-scoped order: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, fault.Conflict("order %s changed concurrently", orderID)
		}

		return nil, nil
	})
	if err != nil {
		return classify("transition order", err)
	}
	return nil
}

// WatchShop streams change notifications for one shop's orders. The
// returned cancel func must be called when the viewer goes away.
func (r *orderRepository) WatchShop(ctx context.Context, shopName string) (<-chan struct{}, func(), error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"fullDocument.shop_name": shopName,
	}}}}
	return r.watch(ctx, r.shopOrders, pipeline)
}

func (r *orderRepository) WatchUser(ctx context.Context, userID string) (<-chan struct{}, func(), error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{
		"fullDocument.user_id": userID,
	}}}}
	return r.watch(ctx, r.userOrders, pipeline)
}

func (r *orderRepository) watch(ctx context.Context, coll *mongo.Collection, pipeline mongo.Pipeline) (<-chan struct{}, func(), error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := coll.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, nil, classify("watch orders", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			select {
			case ch <- struct{}{}:
			default: // a pending notification already covers this change
			}
		}
	}()

	return ch, cancel, nil
}
