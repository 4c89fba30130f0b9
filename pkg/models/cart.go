package models

import "time"

// Cart is the shopper's in-progress selection. It binds to a single shop:
// the first added item fixes ShopName/ShopID/ShopAddress until the cart is
// emptied.
type Cart struct {
	UserID      string              `bson:"_id" json:"user_id"`
	ShopName    string              `bson:"shop_name" json:"shop_name"`
	ShopID      string              `bson:"shop_id" json:"shop_id"`
	ShopAddress string              `bson:"shop_address" json:"shop_address"`
	Items       map[string]CartItem `bson:"items" json:"items"`
	UpdatedAt   time.Time           `bson:"updated_at" json:"updated_at"`
}

// CartItem is keyed by item name in Cart.Items; a quantity that would drop
// to zero removes the entry instead of storing a zero.
type CartItem struct {
	Price    float64 `bson:"price" json:"price"`
	Quantity int     `bson:"quantity" json:"quantity"`
}

func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Subtotal sums price*quantity over all items.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}
