package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address represents a user's saved delivery address
type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zipcode" json:"zipcode"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// User represents a user in the system
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Address   Address            `bson:"address" json:"address"`
	Role      string             `bson:"role" json:"role"` // "user" or "admin"
	Banned    bool               `bson:"banned" json:"banned"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// ValidRole reports whether role is one of the account roles.
func ValidRole(role string) bool { return role == RoleUser || role == RoleAdmin }

// UserFilter narrows admin user listings. Query matches name, email or phone.
type UserFilter struct {
	Query  string
	Role   string
	Banned *bool
	Page   int
	Limit  int
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID     primitive.ObjectID
	Name   string
	Email  string
	Role   string
	Banned bool
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// PrincipalFromUser builds the request principal for a stored user.
func PrincipalFromUser(u User) Principal {
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Banned: u.Banned}
}
