package accessdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a permission is not found.
var ErrNotFound = errors.New("permission not found")

// ErrDuplicatePermission is returned when the (user, tool, club) triple exists.
var ErrDuplicatePermission = errors.New("permission already exists")

// ErrInvalidScope is returned when the super_admin/club invariant is violated:
// super_admin grants carry no club, every other role requires one.
var ErrInvalidScope = errors.New("invalid permission scope")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new tool permission repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetForUserClub retrieves a user's race_management permission for a club.
func (r *Impl) GetForUserClub(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID) (*ToolPermission, error) {
	db = r.resolveDB(db)
	perm := new(ToolPermission)
	err := db.NewSelect().
		Model(perm).
		Where("user_uuid = ?", userUUID).
		Where("tool = ?", ToolRaceManagement).
		Where("club_uuid = ?", clubUUID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return perm, nil
}

// HasSuperAdmin reports whether the user holds a global super_admin grant.
func (r *Impl) HasSuperAdmin(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (bool, error) {
	db = r.resolveDB(db)
	exists, err := db.NewSelect().
		Model((*ToolPermission)(nil)).
		Where("user_uuid = ?", userUUID).
		Where("tool = ?", ToolRaceManagement).
		Where("role = ?", RoleSuperAdmin).
		Where("club_uuid IS NULL").
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check super admin grant: %w", err)
	}
	return exists, nil
}

// ListForClub lists all race_management permissions scoped to a club.
func (r *Impl) ListForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) ([]ToolPermission, error) {
	db = r.resolveDB(db)
	var perms []ToolPermission
	err := db.NewSelect().
		Model(&perms).
		Where("tool = ?", ToolRaceManagement).
		Where("club_uuid = ?", clubUUID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list club permissions: %w", err)
	}
	return perms, nil
}

// ListForUser lists all race_management permissions held by a user.
func (r *Impl) ListForUser(ctx context.Context, db bun.IDB, userUUID uuid.UUID) ([]ToolPermission, error) {
	db = r.resolveDB(db)
	var perms []ToolPermission
	err := db.NewSelect().
		Model(&perms).
		Where("tool = ?", ToolRaceManagement).
		Where("user_uuid = ?", userUUID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list user permissions: %w", err)
	}
	return perms, nil
}

// Create inserts a permission after checking the scope invariant.
func (r *Impl) Create(ctx context.Context, db bun.IDB, perm *ToolPermission) error {
	db = r.resolveDB(db)

	if perm.Role == RoleSuperAdmin && perm.ClubUUID != nil {
		return ErrInvalidScope
	}
	if perm.Role != RoleSuperAdmin && perm.ClubUUID == nil {
		return ErrInvalidScope
	}

	now := time.Now()
	perm.CreatedAt = now
	perm.UpdatedAt = now
	if _, err := db.NewInsert().Model(perm).Exec(ctx); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicatePermission
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// UpdateRole changes the role on an existing club-scoped permission.
func (r *Impl) UpdateRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*ToolPermission)(nil)).
		Set("role = ?", role).
		Set("updated_at = ?", time.Now()).
		Where("user_uuid = ?", userUUID).
		Where("tool = ?", ToolRaceManagement).
		Where("club_uuid = ?", clubUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update permission role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a club-scoped permission.
func (r *Impl) Delete(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*ToolPermission)(nil)).
		Where("user_uuid = ?", userUUID).
		Where("tool = ?", ToolRaceManagement).
		Where("club_uuid = ?", clubUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
