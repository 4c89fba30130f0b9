package models

import "time"

// OrderStatus values form a directed acyclic graph; see Transitions.
type OrderStatus string

const (
	StatusNewOrder  OrderStatus = "NewOrder"
	StatusAccepted  OrderStatus = "Accepted"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

// Transitions is the legal status graph. Delivered and Cancelled are
// terminal. Rejecting a new order is modeled as Cancelled.
var Transitions = map[OrderStatus][]OrderStatus{
	StatusNewOrder:  {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady},
	StatusReady:     {StatusDelivered},
	StatusDelivered: nil,
	StatusCancelled: nil,
}

func (s OrderStatus) Valid() bool {
	_, ok := Transitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := Transitions[s]
	return ok && len(next) == 0
}

// CanTransition reports whether s -> target is an edge of the graph.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, next := range Transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// TaxRate is applied to the subtotal at submission time.
const TaxRate = 0.10

// Order is written under two scopes (shop-keyed and user-keyed) with the
// same OrderID so either viewer queries its own collection without a join.
type Order struct {
	OrderID    string       `bson:"_id" json:"order_id"`
	UserID     string       `bson:"user_id" json:"user_id"`
	ShopName   string       `bson:"shop_name" json:"shop_name"`
	Items      []OrderLine  `bson:"items" json:"items"`
	Subtotal   float64      `bson:"subtotal" json:"subtotal"`
	Tax        float64      `bson:"tax" json:"tax"`
	GrandTotal float64      `bson:"grand_total" json:"grand_total"`
	Status     OrderStatus  `bson:"status" json:"status"`
	Customer   UserSnapshot `bson:"customer" json:"customer"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  *time.Time   `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
	UpdatedBy  string       `bson:"updated_by,omitempty" json:"updated_by,omitempty"`
}

type OrderLine struct {
	Name     string  `bson:"name" json:"name"`
	Price    float64 `bson:"price" json:"price"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

// UserSnapshot is the customer profile captured at submission; it is not
// live-linked to the profile document.
type UserSnapshot struct {
	Name    string `bson:"name" json:"name"`
	Phone   string `bson:"phone" json:"phone"`
	Address string `bson:"address" json:"address"`
	Email   string `bson:"email" json:"email"`
}
