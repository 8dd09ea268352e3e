// Package repository declares the document-store contracts the ledger and the
// reconciliation engine depend on. Every mutation that guards an invariant is
// a single-document conditional update; implementations must make them atomic.
package repository

import (
	"context"
	"errors"
	"time"

	"medishop/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by finders when no document matches.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate key")

// ProductUpdate carries the admin-editable product fields. Nil means unchanged.
type ProductUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	Category    *string
	Images      []string
	IsActive    *bool
}

// ProductRepository handles persistence for products.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, category string, includeInactive bool) ([]models.Product, error)
	Insert(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id primitive.ObjectID, upd ProductUpdate, at time.Time) error
	Count(ctx context.Context) (int64, error)
	// ReserveStock decrements stock by qty only if stock >= qty. It reports
	// whether the decrement happened.
	ReserveStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error)
	// ReleaseStock increments stock by qty.
	ReleaseStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// StatusChange is a conditional order status move.
type StatusChange struct {
	From     models.OrderStatus
	To       models.OrderStatus
	Activity *models.Activity
	At       time.Time
}

// DetailsUpdate is an admin edit of the free-form order fields.
type DetailsUpdate struct {
	Notes    *string
	Shipping *models.ShippingInfo
	Activity models.Activity
	At       time.Time
}

// OrderRepository handles persistence for orders.
type OrderRepository interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	List(ctx context.Context, f models.OrderFilter) ([]models.Order, int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// ChangeStatus applies the change only if the current status equals
	// change.From, appending change.Activity when set. It reports whether the
	// order matched.
	ChangeStatus(ctx context.Context, id primitive.ObjectID, change StatusChange) (bool, error)
	UpdateDetails(ctx context.Context, id primitive.ObjectID, upd DetailsUpdate) error
	// SetTotalLocal stores the gateway-currency total only if none is stored
	// yet. It reports whether this call wrote the value.
	SetTotalLocal(ctx context.Context, id primitive.ObjectID, amount int64) (bool, error)
	// MarkPaymentInitiated stamps a payment attempt unless the payment status
	// is already terminal.
	MarkPaymentInitiated(ctx context.Context, id primitive.ObjectID, method models.PaymentMethod, at time.Time) error
	// Settle writes a terminal payment outcome only if the payment status is
	// not terminal yet. The order status moves to s.OrderStatus only if it is
	// still Pending. It reports whether the settlement was applied.
	Settle(ctx context.Context, id primitive.ObjectID, s models.Settlement) (bool, error)
}

// CartRepository handles persistence for per-user carts.
type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	// Save overwrites the user's cart wholesale, creating it if absent.
	Save(ctx context.Context, c *models.Cart) error
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}

// UserUpdate carries admin edits of an account. Nil means unchanged;
// Password is already hashed.
type UserUpdate struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *models.Address
	Role     *string
	Banned   *bool
	Password *string
}

// UserRepository handles persistence for users.
type UserRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
	List(ctx context.Context, f models.UserFilter) ([]models.User, int64, error)
	// Update returns ErrNotFound for an unknown id and ErrDuplicate when the
	// new email is taken.
	Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate, at time.Time) error
	// CountActiveAdmins counts unbanned admins other than exclude.
	CountActiveAdmins(ctx context.Context, exclude primitive.ObjectID) (int64, error)
}
