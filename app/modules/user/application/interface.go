package userservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service defines the user module's application surface.
type Service interface {
	// Authenticate verifies an email/password pair.
	Authenticate(ctx context.Context, email, password string) (*UserInfo, error)

	// GetByEmail retrieves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)

	// CreateUser creates a user, generating a password when none is given.
	CreateUser(ctx context.Context, email, password string) (*CreatedUser, error)

	// EnsureUser finds or creates a user within the caller's transaction. The
	// generated password is returned only when the user was created.
	EnsureUser(ctx context.Context, db bun.IDB, email string) (uuid.UUID, string, error)
}

var _ Service = (*UserService)(nil)
