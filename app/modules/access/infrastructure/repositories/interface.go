package accessdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for tool permission persistence.
type Repository interface {
	// GetForUserClub retrieves a user's race_management permission for a club.
	GetForUserClub(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID) (*ToolPermission, error)

	// HasSuperAdmin reports whether the user holds a global super_admin grant.
	HasSuperAdmin(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (bool, error)

	// ListForClub lists all race_management permissions scoped to a club.
	ListForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) ([]ToolPermission, error)

	// ListForUser lists all race_management permissions held by a user.
	ListForUser(ctx context.Context, db bun.IDB, userUUID uuid.UUID) ([]ToolPermission, error)

	// Create inserts a permission, enforcing the super_admin/club invariant.
	Create(ctx context.Context, db bun.IDB, perm *ToolPermission) error

	// UpdateRole changes the role on an existing club-scoped permission.
	UpdateRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error

	// Delete removes a club-scoped permission.
	Delete(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID) error
}
