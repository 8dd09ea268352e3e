package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem represents an item in the cart
type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

// Cart represents a user's shopping cart
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items     []CartItem         `bson:"items" json:"items"`
	Total     float64            `bson:"total" json:"total"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Recalculate refreshes every line subtotal and the cart total.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		line := decimal.NewFromFloat(c.Items[i].Price).Mul(decimal.NewFromInt(int64(c.Items[i].Quantity))).Round(2)
		c.Items[i].Subtotal = line.InexactFloat64()
		total = total.Add(line)
	}
	c.Total = total.Round(2).InexactFloat64()
}
