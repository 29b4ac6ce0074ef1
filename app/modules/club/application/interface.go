package clubservice

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
)

// Service defines the club module's application surface.
type Service interface {
	// CreateClub stands up a club with its initial race and an optional
	// bootstrap admin.
	CreateClub(ctx context.Context, input CreateClubInput) (*CreatedClub, error)

	// GetBySlug retrieves a club by slug.
	GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*ClubInfo, error)

	// GetByUUID retrieves a club by UUID.
	GetByUUID(ctx context.Context, clubUUID uuid.UUID, includeDeleted bool) (*ClubInfo, error)

	// List returns clubs matching the filter.
	List(ctx context.Context, filter clubdb.ListFilter) ([]ClubInfo, error)

	// Count returns the number of clubs.
	Count(ctx context.Context, includeDeleted bool) (int, error)

	// UpdateClub patches a club; the slug freezes once a race exists.
	UpdateClub(ctx context.Context, clubUUID uuid.UUID, input UpdateClubInput) (*ClubInfo, error)

	// SoftDelete hides the club without destroying data.
	SoftDelete(ctx context.Context, clubUUID uuid.UUID) error

	// Restore brings a soft-deleted club back.
	Restore(ctx context.Context, clubUUID uuid.UUID) error

	// HardDelete permanently removes the club.
	HardDelete(ctx context.Context, clubUUID uuid.UUID) error

	// OwnerUserID returns the club's owner reference for role resolution.
	OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error)
}

var _ Service = (*ClubService)(nil)
