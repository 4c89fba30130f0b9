package models

import "time"

// AdminSession is the server-held credential for platform-admin actions.
// The server record is authoritative; any client-side copy is a pointer
// that must be re-validated against it.
type AdminSession struct {
	SessionID    string    `bson:"_id" json:"session_id"`
	AdminID      string    `bson:"admin_id" json:"admin_id"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	LastActivity time.Time `bson:"last_activity" json:"last_activity"`
}

func (s *AdminSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
