package domain

import (
	"context"
	"time"
)

// Roles stored on the user record. No operation checks them today; the
// field exists so future admin features have somewhere to hang off.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User represents a registered account
type User struct {
	ID           int64
	Email        string // Unique email address
	FirstName    string
	LastName     string
	PasswordHash string // Bcrypt hash, never the plaintext
	IsActive     bool
	Role         string // student or admin, advisory only
	CreatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}
