package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartRepository persists the shopper's cart document at carts/{userId}.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Upsert(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

type cartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(m *MongoRepository) CartRepository {
	return &cartRepository{collection: m.database.Collection(collCarts)}
}

func (r *cartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.NotFound("cart", userID)
		}
		return nil, classify("get cart", err)
	}
	return &cart, nil
}

func (r *cartRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	filter := bson.M{"_id": cart.UserID}
	opts := options.Replace().SetUpsert(true)

	if _, err := r.collection.ReplaceOne(ctx, filter, cart, opts); err != nil {
		return classify("upsert cart", fmt.Errorf("failed to upsert cart: %w", err))
	}
	return nil
}

func (r *cartRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return classify("delete cart", fmt.Errorf("failed to delete cart: %w", err))
	}
	return nil
}
