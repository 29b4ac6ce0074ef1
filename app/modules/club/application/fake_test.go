package clubservice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
)

// ------------------------
// Fake club repository
// ------------------------

type FakeRepository struct {
	GetBySlugFn   func(ctx context.Context, db bun.IDB, slug string, includeDeleted bool) (*clubdb.Club, error)
	GetByUUIDFn   func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, includeDeleted bool) (*clubdb.Club, error)
	OwnerUserIDFn func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error)
	ListFn        func(ctx context.Context, db bun.IDB, filter clubdb.ListFilter) ([]clubdb.Club, error)
	CountFn       func(ctx context.Context, db bun.IDB, includeDeleted bool) (int, error)
	CreateFn      func(ctx context.Context, db bun.IDB, club *clubdb.Club) error
	UpdateFn      func(ctx context.Context, db bun.IDB, club *clubdb.Club) error
	SetOwnerFn    func(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error
	SoftDeleteFn  func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, at time.Time) error
	RestoreFn     func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error
	HardDeleteFn  func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error
}

func (f *FakeRepository) GetBySlug(ctx context.Context, db bun.IDB, slug string, includeDeleted bool) (*clubdb.Club, error) {
	if f.GetBySlugFn != nil {
		return f.GetBySlugFn(ctx, db, slug, includeDeleted)
	}
	return nil, clubdb.ErrNotFound
}

func (f *FakeRepository) GetByUUID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, includeDeleted bool) (*clubdb.Club, error) {
	if f.GetByUUIDFn != nil {
		return f.GetByUUIDFn(ctx, db, clubUUID, includeDeleted)
	}
	return nil, clubdb.ErrNotFound
}

func (f *FakeRepository) OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error) {
	if f.OwnerUserIDFn != nil {
		return f.OwnerUserIDFn(ctx, db, clubUUID)
	}
	return nil, nil
}

func (f *FakeRepository) List(ctx context.Context, db bun.IDB, filter clubdb.ListFilter) ([]clubdb.Club, error) {
	if f.ListFn != nil {
		return f.ListFn(ctx, db, filter)
	}
	return nil, nil
}

func (f *FakeRepository) Count(ctx context.Context, db bun.IDB, includeDeleted bool) (int, error) {
	if f.CountFn != nil {
		return f.CountFn(ctx, db, includeDeleted)
	}
	return 0, nil
}

func (f *FakeRepository) Create(ctx context.Context, db bun.IDB, club *clubdb.Club) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, db, club)
	}
	return nil
}

func (f *FakeRepository) Update(ctx context.Context, db bun.IDB, club *clubdb.Club) error {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, db, club)
	}
	return nil
}

func (f *FakeRepository) SetOwner(ctx context.Context, db bun.IDB, clubUUID, ownerUUID uuid.UUID) error {
	if f.SetOwnerFn != nil {
		return f.SetOwnerFn(ctx, db, clubUUID, ownerUUID)
	}
	return nil
}

func (f *FakeRepository) SoftDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, at time.Time) error {
	if f.SoftDeleteFn != nil {
		return f.SoftDeleteFn(ctx, db, clubUUID, at)
	}
	return nil
}

func (f *FakeRepository) Restore(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error {
	if f.RestoreFn != nil {
		return f.RestoreFn(ctx, db, clubUUID)
	}
	return nil
}

func (f *FakeRepository) HardDelete(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) error {
	if f.HardDeleteFn != nil {
		return f.HardDeleteFn(ctx, db, clubUUID)
	}
	return nil
}

// ------------------------
// Gateway fakes
// ------------------------

type FakeRaceDirectory struct {
	BootstrapRaceFn func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, loc *time.Location) error
	HasRaceFn       func(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error)

	mu           sync.Mutex
	Bootstrapped []uuid.UUID
}

func (f *FakeRaceDirectory) BootstrapRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, loc *time.Location) error {
	if f.BootstrapRaceFn != nil {
		return f.BootstrapRaceFn(ctx, db, clubUUID, loc)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bootstrapped = append(f.Bootstrapped, clubUUID)
	return nil
}

func (f *FakeRaceDirectory) HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error) {
	if f.HasRaceFn != nil {
		return f.HasRaceFn(ctx, db, clubUUID)
	}
	return false, nil
}

type FakeUserProvisioner struct {
	EnsureUserFn func(ctx context.Context, db bun.IDB, email string) (uuid.UUID, string, error)
}

func (f *FakeUserProvisioner) EnsureUser(ctx context.Context, db bun.IDB, email string) (uuid.UUID, string, error) {
	if f.EnsureUserFn != nil {
		return f.EnsureUserFn(ctx, db, email)
	}
	return uuid.New(), "", nil
}

type grantedRole struct {
	UserUUID uuid.UUID
	ClubUUID uuid.UUID
	Role     string
}

type FakePermissionGranter struct {
	GrantClubRoleFn func(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error

	mu      sync.Mutex
	Granted []grantedRole
}

func (f *FakePermissionGranter) GrantClubRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error {
	if f.GrantClubRoleFn != nil {
		return f.GrantClubRoleFn(ctx, db, userUUID, clubUUID, role)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Granted = append(f.Granted, grantedRole{UserUUID: userUUID, ClubUUID: clubUUID, Role: role})
	return nil
}
