package models

import "time"

// ApplicationStatus values for a seller's pending outlet application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// OutletApplication is a seller's request to become an Outlet. The record
// lives in the pending collection until a terminal decision consumes it;
// a mirrored status record may persist for audit.
type OutletApplication struct {
	ApplicationID string            `bson:"_id" json:"application_id"`
	UserID        string            `bson:"user_id" json:"user_id"`
	OwnerEmail    string            `bson:"owner_email" json:"owner_email"`
	Status        ApplicationStatus `bson:"status" json:"status"`
	Name          string            `bson:"name" json:"name"`
	Cuisine       string            `bson:"cuisine" json:"cuisine"`
	Address       string            `bson:"address" json:"address"`
	Phone         string            `bson:"phone" json:"phone"`
	Category      string            `bson:"category" json:"category"`
	// Password is staged for account creation on approval.
	Password  string    `bson:"password" json:"-"`
	OutletID  string    `bson:"outlet_id,omitempty" json:"outlet_id,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Outlet is an approved seller able to receive orders.
type Outlet struct {
	OutletID    string                 `bson:"_id" json:"outlet_id"`
	Name        string                 `bson:"name" json:"name"`
	OwnerEmail  string                 `bson:"owner_email" json:"owner_email"`
	Status      string                 `bson:"status" json:"status"`
	IsOpen      bool                   `bson:"is_open" json:"is_open"`
	Cuisine     string                 `bson:"cuisine" json:"cuisine"`
	Address     string                 `bson:"address" json:"address"`
	Phone       string                 `bson:"phone" json:"phone"`
	Category    string                 `bson:"category" json:"category"`
	Hours       map[string]BusinessDay `bson:"hours" json:"hours"`
	MenuCount   int                    `bson:"menu_count" json:"menu_count"`
	RatingCount int                    `bson:"rating_count" json:"rating_count"`
	RatingSum   float64                `bson:"rating_sum" json:"rating_sum"`
	OrderCount  int                    `bson:"order_count" json:"order_count"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
}

type BusinessDay struct {
	Open   string `bson:"open" json:"open"`
	Close  string `bson:"close" json:"close"`
	Closed bool   `bson:"closed" json:"closed"`
}

// DefaultBusinessHours is the weekly template stamped onto a newly
// approved outlet.
func DefaultBusinessHours() map[string]BusinessDay {
	hours := make(map[string]BusinessDay, 7)
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		hours[day] = BusinessDay{Open: "09:00", Close: "22:00"}
	}
	return hours
}
