package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem is the immutable line snapshot taken when the order is placed
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Image     string             `bson:"image,omitempty" json:"image,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
}

// ShippingInfo is the delivery contact snapshot
type ShippingInfo struct {
	FullName string `bson:"full_name" json:"full_name"`
	Phone    string `bson:"phone" json:"phone"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Address  string `bson:"address" json:"address"`
	City     string `bson:"city" json:"city"`
	State    string `bson:"state" json:"state"`
	Zip      string `bson:"zip" json:"zip"`
	Country  string `bson:"country" json:"country"`
	Note     string `bson:"note,omitempty" json:"note,omitempty"`
}

// IsZero reports whether no shipping field was supplied.
func (s ShippingInfo) IsZero() bool { return s == ShippingInfo{} }

// Actor identifies who made an administrative change
type Actor struct {
	ID   string `bson:"id" json:"id"`
	Name string `bson:"name" json:"name"`
}

// Activity is one entry of the append-only audit log
type Activity struct {
	Type      string      `bson:"type" json:"type"` // "status_change" or "update"
	Status    OrderStatus `bson:"status,omitempty" json:"status,omitempty"`
	Actor     Actor       `bson:"actor" json:"actor"`
	Message   string      `bson:"message" json:"message"`
	Fields    []string    `bson:"fields,omitempty" json:"fields,omitempty"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
}

// Order represents a user's order
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Code        string             `bson:"order_code" json:"order_code"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items       []OrderItem        `bson:"items" json:"items"`
	Shipping    ShippingInfo       `bson:"shipping" json:"shipping"`
	Payment     PaymentInfo        `bson:"payment" json:"payment"`
	Subtotal    float64            `bson:"subtotal" json:"subtotal"`
	ShippingFee float64            `bson:"shipping_fee" json:"shipping_fee"`
	Tax         float64            `bson:"tax" json:"tax"`
	Total       float64            `bson:"total" json:"total"`
	TotalLocal  int64              `bson:"total_local,omitempty" json:"total_local,omitempty"` // gateway currency, computed once
	Status      OrderStatus        `bson:"status" json:"status"`
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	ActivityLog []Activity         `bson:"activity_log,omitempty" json:"activity_log,omitempty"`
	PaidAt      *time.Time         `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status OrderStatus
	UserID primitive.ObjectID
	Page   int
	Limit  int
}
