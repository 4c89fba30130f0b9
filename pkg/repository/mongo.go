package repository

import (
	"context"
	"time"

	"github.com/example/foodcourt/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. Orders are dual-written: the same order document is
// stored under the shop-scoped and the user-scoped collection with the
// same _id, so each viewer queries its own collection without a join.
const (
	collCarts          = "carts"
	collShopOrders     = "shop_orders"
	collUserOrders     = "user_orders"
	collPendingOutlets = "pending_outlets"
	collApplications   = "outlet_applications"
	collOutlets        = "outlets"
	collAdminSessions  = "admin_sessions"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the query-path indexes. Safe to call on every
// startup; Mongo treats existing identical indexes as a no-op.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	shopOrders := m.database.Collection(collShopOrders)
	if _, err := shopOrders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "shop_name", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return err
	}

	userOrders := m.database.Collection(collUserOrders)
	if _, err := userOrders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return err
	}

	sessions := m.database.Collection(collAdminSessions)
	if _, err := sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "admin_id", Value: 1}},
	}); err != nil {
		return err
	}

	return nil
}
