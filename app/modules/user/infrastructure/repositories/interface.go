package userdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for user persistence.
type Repository interface {
	// GetByUUID retrieves a user by UUID.
	GetByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, db bun.IDB, email string) (*User, error)

	// Create inserts a new user.
	Create(ctx context.Context, db bun.IDB, user *User) error
}
