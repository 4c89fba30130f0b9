// Package session issues, validates, and revokes admin sessions. The
// server-held record is the source of truth: the redis pointer a device
// carries is only a lookup hint and is re-checked against Mongo on every
// privileged action, which is what makes a session valid across devices.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/example/foodcourt/pkg/fault"
	"github.com/example/foodcourt/pkg/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Sessions is the server-side session record store.
type Sessions interface {
	Insert(ctx context.Context, session *models.AdminSession) error
	Get(ctx context.Context, sessionID string) (*models.AdminSession, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, adminID string, now time.Time) (int64, error)
}

// Pointers is the device-local ephemeral mirror.
type Pointers interface {
	SetSessionPointer(ctx context.Context, deviceID, sessionID string, ttl time.Duration) error
	GetSessionPointer(ctx context.Context, deviceID string) (string, error)
	DelSessionPointer(ctx context.Context, deviceID string) error
}

type Validator struct {
	sessions Sessions
	pointers Pointers
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
	sfg      singleflight.Group
}

func NewValidator(sessions Sessions, pointers Pointers, ttl time.Duration, logger *zap.Logger) *Validator {
	return &Validator{
		sessions: sessions,
		pointers: pointers,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Login sweeps the admin's expired sessions, then issues and persists a
// fresh one and mirrors its id for the device. The sweep is opportunistic;
// its failure does not block the login.
func (v *Validator) Login(ctx context.Context, adminID, deviceID string) (*models.AdminSession, error) {
	now := v.now()

	if swept, err := v.sessions.DeleteExpired(ctx, adminID, now); err != nil {
		v.logger.Warn("expired session sweep failed",
			zap.String("admin_id", adminID),
			zap.Error(err))
	} else if swept > 0 {
		v.logger.Info("swept expired sessions",
			zap.String("admin_id", adminID),
			zap.Int64("count", swept))
	}

	session := &models.AdminSession{
		SessionID:    uuid.NewString(),
		AdminID:      adminID,
		CreatedAt:    now,
		ExpiresAt:    now.Add(v.ttl),
		LastActivity: now,
	}

	if err := v.sessions.Insert(ctx, session); err != nil {
		return nil, err
	}

	if deviceID != "" {
		if err := v.pointers.SetSessionPointer(ctx, deviceID, session.SessionID, v.ttl); err != nil {
			v.logger.Warn("session pointer mirror failed",
				zap.String("session_id", session.SessionID),
				zap.Error(err))
		}
	}

	return session, nil
}

// Validate re-checks the presented session against the server record and
// refreshes its activity timestamp. A missing or expired record forces
// logout regardless of any device-local state. Concurrent validations of
// the same id collapse into one server round trip.
func (v *Validator) Validate(ctx context.Context, sessionID string) (*models.AdminSession, error) {
	if sessionID == "" {
		return nil, fault.Validation("missing session id")
	}

	result, err, _ := v.sfg.Do(sessionID, func() (interface{}, error) {
		session, err := v.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		now := v.now()
		if session.Expired(now) {
			if err := v.sessions.Delete(ctx, sessionID); err != nil {
				v.logger.Warn("expired session delete failed",
					zap.String("session_id", sessionID),
					zap.Error(err))
			}
			return nil, fault.NotFound("session", sessionID)
		}

		if err := v.sessions.Touch(ctx, sessionID, now); err != nil &&
			!errors.Is(err, fault.ErrNotFound) {
			v.logger.Warn("session activity refresh failed",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
		session.LastActivity = now
		return session, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.AdminSession), nil
}

// ResolveDevice looks up the session id mirrored for a device. The result
// is only a hint; callers still pass it through Validate.
func (v *Validator) ResolveDevice(ctx context.Context, deviceID string) (string, error) {
	if deviceID == "" {
		return "", fault.Validation("missing device id")
	}
	return v.pointers.GetSessionPointer(ctx, deviceID)
}

// Logout deletes the server record and drops the device pointer.
func (v *Validator) Logout(ctx context.Context, sessionID, deviceID string) error {
	if err := v.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if deviceID != "" {
		if err := v.pointers.DelSessionPointer(ctx, deviceID); err != nil {
			v.logger.Warn("session pointer drop failed",
				zap.String("device_id", deviceID),
				zap.Error(err))
		}
	}
	return nil
}
