// Package adapters bridges the narrow interfaces modules declare for each
// other onto the concrete repositories, keeping module packages free of
// direct cross-module imports.
package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	accessservice "github.com/bmxtools/raceday/app/modules/access/application"
	accessdb "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories"
	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
	transferservice "github.com/bmxtools/raceday/app/modules/transfer/application"
	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
)

// ClubAdapter projects the club repository onto the club-facing interfaces of
// the race, transfer, access, and activity modules.
type ClubAdapter struct {
	repo clubdb.Repository
}

// NewClubAdapter creates a new ClubAdapter.
func NewClubAdapter(repo clubdb.Repository) *ClubAdapter {
	return &ClubAdapter{repo: repo}
}

// ActiveClubBySlug resolves a non-deleted club for the race engine.
func (a *ClubAdapter) ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*raceservice.ClubRef, error) {
	club, err := a.repo.GetBySlug(ctx, db, slug, false)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			return nil, raceservice.ErrClubNotFound
		}
		return nil, err
	}
	return &raceservice.ClubRef{
		UUID:     club.UUID,
		Slug:     club.Slug,
		Location: club.TimeLocation(),
	}, nil
}

// OwnerUserID satisfies the access gate's club directory.
func (a *ClubAdapter) OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error) {
	return a.repo.OwnerUserID(ctx, db, clubUUID)
}

// SlugByUUID resolves a club's slug for broadcast topic naming. Soft-deleted
// clubs still resolve so their trailing activity lands somewhere.
func (a *ClubAdapter) SlugByUUID(ctx context.Context, clubUUID uuid.UUID) (string, error) {
	club, err := a.repo.GetByUUID(ctx, nil, clubUUID, true)
	if err != nil {
		return "", err
	}
	return club.Slug, nil
}

// TransferClubGateway narrows the club repository to what the transfer state
// machine needs.
type TransferClubGateway struct {
	repo clubdb.Repository
}

// NewTransferClubGateway creates a new TransferClubGateway.
func NewTransferClubGateway(repo clubdb.Repository) *TransferClubGateway {
	return &TransferClubGateway{repo: repo}
}

// ActiveClubBySlug resolves a non-deleted club.
func (g *TransferClubGateway) ActiveClubBySlug(ctx context.Context, db bun.IDB, slug string) (*transferservice.ClubRef, error) {
	club, err := g.repo.GetBySlug(ctx, db, slug, false)
	if err != nil {
		if errors.Is(err, clubdb.ErrNotFound) {
			return nil, transferservice.ErrClubNotFound
		}
		return nil, err
	}
	return &transferservice.ClubRef{UUID: club.UUID, Slug: club.Slug}, nil
}

// ClubByUUID resolves a club for token-addressed operations.
func (g *TransferClubGateway) ClubByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*transferservice.ClubRef, error) {
	club, err := g.repo.GetByUUID(ctx, db, clubUUID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve club: %w", err)
	}
	return &transferservice.ClubRef{UUID: club.UUID, Slug: club.Slug}, nil
}

// SetOwner reassigns club ownership.
func (g *TransferClubGateway) SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error {
	return g.repo.SetOwner(ctx, db, clubUUID, ownerUUID)
}

// UserAdapter projects the user repository onto the user-facing interfaces of
// the transfer and access modules.
type UserAdapter struct {
	repo userdb.Repository
}

// NewUserAdapter creates a new UserAdapter.
func NewUserAdapter(repo userdb.Repository) *UserAdapter {
	return &UserAdapter{repo: repo}
}

// ByEmail resolves a user for the transfer machine.
func (a *UserAdapter) ByEmail(ctx context.Context, db bun.IDB, email string) (*transferservice.UserRef, error) {
	user, err := a.repo.GetByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, transferservice.ErrTargetUserNotFound
		}
		return nil, err
	}
	return &transferservice.UserRef{UUID: user.UUID, Email: user.Email}, nil
}

// ByUUID resolves a user for the transfer machine.
func (a *UserAdapter) ByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*transferservice.UserRef, error) {
	user, err := a.repo.GetByUUID(ctx, db, userUUID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, transferservice.ErrTargetUserNotFound
		}
		return nil, err
	}
	return &transferservice.UserRef{UUID: user.UUID, Email: user.Email}, nil
}

// GetByEmail satisfies the access gate's user directory.
func (a *UserAdapter) GetByEmail(ctx context.Context, db bun.IDB, email string) (*accessservice.DirectoryUser, error) {
	user, err := a.repo.GetByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, accessservice.ErrDirectoryUserNotFound
		}
		return nil, err
	}
	return &accessservice.DirectoryUser{UUID: user.UUID, Email: user.Email}, nil
}

// GetByUUID satisfies the access gate's user directory.
func (a *UserAdapter) GetByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*accessservice.DirectoryUser, error) {
	user, err := a.repo.GetByUUID(ctx, db, userUUID)
	if err != nil {
		if errors.Is(err, userdb.ErrNotFound) {
			return nil, accessservice.ErrDirectoryUserNotFound
		}
		return nil, err
	}
	return &accessservice.DirectoryUser{UUID: user.UUID, Email: user.Email}, nil
}

// PermissionGrantAdapter lets club bootstrap create grants inside its own
// transaction.
type PermissionGrantAdapter struct {
	repo accessdb.Repository
}

// NewPermissionGrantAdapter creates a new PermissionGrantAdapter.
func NewPermissionGrantAdapter(repo accessdb.Repository) *PermissionGrantAdapter {
	return &PermissionGrantAdapter{repo: repo}
}

// GrantClubRole grants a club-scoped role, treating an existing identical
// grant as success.
func (a *PermissionGrantAdapter) GrantClubRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error {
	err := a.repo.Create(ctx, db, &accessdb.ToolPermission{
		UserUUID: userUUID,
		Tool:     accessdb.ToolRaceManagement,
		Role:     role,
		ClubUUID: &clubUUID,
	})
	if errors.Is(err, accessdb.ErrDuplicatePermission) {
		return nil
	}
	return err
}
