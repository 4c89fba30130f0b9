package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository persists admin sessions at admin_sessions/{sessionId}.
type SessionRepository interface {
	Insert(ctx context.Context, session *models.AdminSession) error
	Get(ctx context.Context, sessionID string) (*models.AdminSession, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
	// DeleteExpired removes every session of the admin whose horizon has
	// passed. Used as the opportunistic sweep on login.
	DeleteExpired(ctx context.Context, adminID string, now time.Time) (int64, error)
}

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(m *MongoRepository) SessionRepository {
	return &sessionRepository{collection: m.database.Collection(collAdminSessions)}
}

func (r *sessionRepository) Insert(ctx context.Context, session *models.AdminSession) error {
	if _, err := r.collection.InsertOne(ctx, session); err != nil {
		return classify("insert session", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, sessionID string) (*models.AdminSession, error) {
	var session models.AdminSession
	err := r.collection.FindOne(ctx, bson.M{"_id": sessionID}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fault.NotFound("session", sessionID)
		}
		return nil, classify("get session", err)
	}
	return &session, nil
}

func (r *sessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"last_activity": at}})
	if err != nil {
		return classify("touch session", err)
	}
	if res.MatchedCount == 0 {
		return fault.NotFound("session", sessionID)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return classify("delete session", err)
	}
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, adminID string, now time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{
		"admin_id":   adminID,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return 0, classify("sweep sessions", err)
	}
	return res.DeletedCount, nil
}
