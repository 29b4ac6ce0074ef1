package clubdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StatusFilter selects clubs by soft-delete state.
type StatusFilter string

const (
	StatusAll     StatusFilter = "all"
	StatusActive  StatusFilter = "active"
	StatusDeleted StatusFilter = "deleted"
)

// ListFilter narrows and orders club listings. IncludeDeleted is implied by
// Status; listing is an admin surface and never filters implicitly.
type ListFilter struct {
	Search    string
	Status    StatusFilter
	SortBy    string
	Ascending bool
	Limit     int
}

// Repository defines the contract for club persistence. Read operations take
// an explicit includeDeleted flag; there is no implicit soft-delete scope.
type Repository interface {
	GetBySlug(ctx context.Context, db bun.IDB, slug string, includeDeleted bool) (*Club, error)
	GetByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, includeDeleted bool) (*Club, error)

	// OwnerUserID returns the club's owner reference without loading the row.
	OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error)

	List(ctx context.Context, db bun.IDB, filter ListFilter) ([]Club, error)
	Count(ctx context.Context, db bun.IDB, includeDeleted bool) (int, error)

	Create(ctx context.Context, db bun.IDB, club *Club) error
	Update(ctx context.Context, db bun.IDB, club *Club) error
	SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error

	SoftDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, at time.Time) error
	Restore(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error
	HardDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error
}
