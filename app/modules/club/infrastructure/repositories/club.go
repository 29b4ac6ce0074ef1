package clubdb

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

// ErrNotFound is returned when a club is not found.
var ErrNotFound = errors.New("club not found")

// ErrDuplicateSlug is returned when the slug is already taken.
var ErrDuplicateSlug = errors.New("slug already taken")

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new club repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetBySlug retrieves a club by slug.
func (r *Impl) GetBySlug(ctx context.Context, db bun.IDB, slug string, includeDeleted bool) (*Club, error) {
	db = r.resolveDB(db)
	club := new(Club)
	q := db.NewSelect().
		Model(club).
		Where("slug = ?", slug)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get club by slug: %w", err)
	}
	return club, nil
}

// GetByUUID retrieves a club by its UUID.
func (r *Impl) GetByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, includeDeleted bool) (*Club, error) {
	db = r.resolveDB(db)
	club := new(Club)
	q := db.NewSelect().
		Model(club).
		Where("uuid = ?", clubUUID)
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get club by UUID: %w", err)
	}
	return club, nil
}

// OwnerUserID returns the club's owner reference without loading the row.
// Soft-deleted clubs still resolve so destructive-action checks keep working.
func (r *Impl) OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error) {
	db = r.resolveDB(db)
	var ownerID *uuid.UUID
	err := db.NewSelect().
		Model((*Club)(nil)).
		Column("owner_user_id").
		Where("uuid = ?", clubUUID).
		Scan(ctx, &ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get club owner: %w", err)
	}
	return ownerID, nil
}

// List returns clubs matching the filter.
func (r *Impl) List(ctx context.Context, db bun.IDB, filter ListFilter) ([]Club, error) {
	db = r.resolveDB(db)
	var clubs []Club

	q := db.NewSelect().Model(&clubs)

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("name ILIKE ?", term).
				WhereOr("location ILIKE ?", term).
				WhereOr("slug ILIKE ?", term)
		})
	}

	switch filter.Status {
	case StatusActive:
		q = q.Where("deleted_at IS NULL")
	case StatusDeleted:
		q = q.Where("deleted_at IS NOT NULL")
	}

	sortColumn := "name"
	switch filter.SortBy {
	case "name", "slug", "location", "created_at", "updated_at":
		sortColumn = filter.SortBy
	}
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}
	q = q.OrderExpr("? ?", bun.Ident(sortColumn), bun.Safe(direction))

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	q = q.Limit(limit)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list clubs: %w", err)
	}
	return clubs, nil
}

// Count returns the number of clubs.
func (r *Impl) Count(ctx context.Context, db bun.IDB, includeDeleted bool) (int, error) {
	db = r.resolveDB(db)
	q := db.NewSelect().Model((*Club)(nil))
	if !includeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count clubs: %w", err)
	}
	return count, nil
}

// Create inserts a new club.
func (r *Impl) Create(ctx context.Context, db bun.IDB, club *Club) error {
	db = r.resolveDB(db)
	now := time.Now()
	club.CreatedAt = now
	club.UpdatedAt = now
	if _, err := db.NewInsert().Model(club).Exec(ctx); err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to create club: %w", err)
	}
	return nil
}

// Update persists name, slug, timezone, location, and contact email.
func (r *Impl) Update(ctx context.Context, db bun.IDB, club *Club) error {
	db = r.resolveDB(db)
	club.UpdatedAt = time.Now()
	result, err := db.NewUpdate().
		Model(club).
		Column("name", "slug", "timezone", "location", "contact_email", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("failed to update club: %w", err)
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

// SetOwner reassigns the club's owner reference.
func (r *Impl) SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Club)(nil)).
		Set("owner_user_id = ?", ownerUUID).
		Set("updated_at = ?", time.Now()).
		Where("uuid = ?", clubUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set club owner: %w", err)
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

// SoftDelete marks the club deleted at the given time.
func (r *Impl) SoftDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, at time.Time) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Club)(nil)).
		Set("deleted_at = ?", at).
		Set("updated_at = ?", at).
		Where("uuid = ?", clubUUID).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to soft delete club: %w", err)
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

// Restore clears the soft-delete marker.
func (r *Impl) Restore(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewUpdate().
		Model((*Club)(nil)).
		Set("deleted_at = NULL").
		Set("updated_at = ?", time.Now()).
		Where("uuid = ?", clubUUID).
		Where("deleted_at IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore club: %w", err)
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

// HardDelete removes the club row. Dependent rows cascade via FK constraints.
func (r *Impl) HardDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Club)(nil)).
		Where("uuid = ?", clubUUID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to hard delete club: %w", err)
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
