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

// ApplicationRepository manages pending outlet applications and the
// per-user status mirror kept for audit.
type ApplicationRepository interface {
	CreatePending(ctx context.Context, app *models.OutletApplication) error
	GetPending(ctx context.Context, applicationID string) (*models.OutletApplication, error)
	ListPending(ctx context.Context) ([]models.OutletApplication, error)
	// Approve deletes the pending record and creates the outlet in one
	// transaction. A second approve of the same application finds the
	// pending record gone and fails with NotFound instead of creating a
	// duplicate outlet.
	Approve(ctx context.Context, applicationID string, outlet *models.Outlet) error
	DeletePending(ctx context.Context, applicationID string) error
	SetMirrorStatus(ctx context.Context, userID string, status models.ApplicationStatus, outletID string) error
}

type applicationRepository struct {
	client  *mongo.Client
	pending *mongo.Collection
	mirror  *mongo.Collection
	outlets *mongo.Collection
}

func NewApplicationRepository(m *MongoRepository) ApplicationRepository {
	return &applicationRepository{
		client:  m.client,
		pending: m.database.Collection(collPendingOutlets),
		mirror:  m.database.Collection(collApplications),
		outlets: m.database.Collection(collOutlets),
	}
}

func (r *applicationRepository) CreatePending(ctx context.Context, app *models.OutletApplication) error {
	if _, err := r.pending.InsertOne(ctx, app); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fault.Conflict("application %s already exists", app.ApplicationID)
		}
		return classify("create application", err)
	}
	return nil
}

func (r *applicationRepository) GetPending(ctx context.Context, applicationID string) (*models.OutletApplication, error) {
	var app models.OutletApplication
	err := r.pending.FindOne(ctx, bson.M{"_id": applicationID}).Decode(&app)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.NotFound("application", applicationID)
		}
		return nil, classify("get application", err)
	}
	return &app, nil
}

func (r *applicationRepository) ListPending(ctx context.Context) ([]models.OutletApplication, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.pending.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify("list applications", err)
	}
	defer cursor.Close(ctx)

	var apps []models.OutletApplication
	if err := cursor.All(ctx, &apps); err != nil {
		return nil, classify("list applications", err)
	}
	return apps, nil
}

func (r *applicationRepository) Approve(ctx context.Context, applicationID string, outlet *models.Outlet) error {
	session, err := r.client.StartSession()
	if err != nil {
		return classify("approve application", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := r.pending.DeleteOne(sc, bson.M{"_id": applicationID})
		if err != nil {
			return nil, fmt.Errorf("failed to delete pending application: %w", err)
		}
		if res.DeletedCount == 0 {
			return nil, fault.NotFound("application", applicationID)
		}
		if _, err := r.outlets.InsertOne(sc, outlet); err != nil {
			return nil, fmt.Errorf("failed to create outlet: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return classify("approve application", err)
	}
	return nil
}

func (r *applicationRepository) DeletePending(ctx context.Context, applicationID string) error {
	res, err := r.pending.DeleteOne(ctx, bson.M{"_id": applicationID})
	if err != nil {
		return classify("delete application", err)
	}
	if res.DeletedCount == 0 {
		return fault.NotFound("application", applicationID)
	}
	return nil
}

// SetMirrorStatus upserts the audit record at outlet_applications/{userId}.
// Callers treat failures as best-effort.
func (r *applicationRepository) SetMirrorStatus(ctx context.Context, userID string, status models.ApplicationStatus, outletID string) error {
	fields := bson.M{"status": status}
	if outletID != "" {
		fields["outlet_id"] = outletID
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.mirror.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": fields}, opts); err != nil {
		return classify("mirror application status", err)
	}
	return nil
}

// OutletRepository reads and mutates approved outlets.
type OutletRepository interface {
	Get(ctx context.Context, outletID string) (*models.Outlet, error)
	List(ctx context.Context) ([]models.Outlet, error)
	SetOpen(ctx context.Context, outletID string, open bool) error
}

type outletRepository struct {
	collection *mongo.Collection
}

func NewOutletRepository(m *MongoRepository) OutletRepository {
	return &outletRepository{collection: m.database.Collection(collOutlets)}
}

func (r *outletRepository) Get(ctx context.Context, outletID string) (*models.Outlet, error) {
	var outlet models.Outlet
	err := r.collection.FindOne(ctx, bson.M{"_id": outletID}).Decode(&outlet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.NotFound("outlet", outletID)
		}
		return nil, classify("get outlet", err)
	}
	return &outlet, nil
}

func (r *outletRepository) List(ctx context.Context) ([]models.Outlet, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, classify("list outlets", err)
	}
	defer cursor.Close(ctx)

	var outlets []models.Outlet
	if err := cursor.All(ctx, &outlets); err != nil {
		return nil, classify("list outlets", err)
	}
	return outlets, nil
}

func (r *outletRepository) SetOpen(ctx context.Context, outletID string, open bool) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": outletID},
		bson.M{"$set": bson.M{"is_open": open}})
	if err != nil {
		return classify("set outlet open", err)
	}
	if res.MatchedCount == 0 {
		return fault.NotFound("outlet", outletID)
	}
	return nil
}
