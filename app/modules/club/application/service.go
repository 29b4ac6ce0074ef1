package clubservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"

	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ClubInfo is the view of a club handed to callers.
type ClubInfo struct {
	UUID         uuid.UUID
	Name         string
	Slug         string
	Timezone     string
	Location     string
	ContactEmail string
	OwnerUserID  *uuid.UUID
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateClubInput carries everything needed to stand up a club. AdminEmail is
// optional; when set, that user is found or created, granted club_admin, and
// made owner if the club has none.
type CreateClubInput struct {
	Name         string
	Slug         string
	Timezone     string
	Location     string
	ContactEmail string
	AdminEmail   string
}

// CreatedClub is returned from CreateClub. AdminPassword is only set when the
// bootstrap admin was freshly created with a generated password.
type CreatedClub struct {
	ClubInfo
	AdminPassword string
}

// UpdateClubInput patches a club; nil fields are left untouched.
type UpdateClubInput struct {
	Name         *string
	Slug         *string
	Timezone     *string
	Location     *string
	ContactEmail *string
}

// RaceDirectory is the slice of the race module the club service needs: it
// seeds the initial race on creation and answers whether race history exists,
// which freezes the slug.
type RaceDirectory interface {
	BootstrapRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, loc *time.Location) error
	HasRace(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (bool, error)
}

// UserProvisioner finds or creates the bootstrap admin user. The generated
// password is non-empty only when the user was freshly created.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, db bun.IDB, email string) (userUUID uuid.UUID, generatedPassword string, err error)
}

// PermissionGranter grants club-scoped roles for bootstrap.
type PermissionGranter interface {
	GrantClubRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID, role string) error
}

// ClubService implements the Service interface.
type ClubService struct {
	repo    clubdb.Repository
	races   RaceDirectory
	users   UserProvisioner
	granter PermissionGranter
	deps    operation.Deps
}

// NewClubService creates a new ClubService.
func NewClubService(
	repo clubdb.Repository,
	races RaceDirectory,
	users UserProvisioner,
	granter PermissionGranter,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ClubService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClubService{
		repo:    repo,
		races:   races,
		users:   users,
		granter: granter,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "ClubService",
		},
	}
}

// CreateClub creates a club together with its initial race, and optionally
// bootstraps a club admin. Everything happens in one transaction so a failed
// bootstrap never leaves a half-configured club behind.
func (s *ClubService) CreateClub(ctx context.Context, input CreateClubInput) (*CreatedClub, error) {
	result, err := operation.Run(ctx, s.deps, "CreateClub", input.Slug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*CreatedClub, error], error) {
			if strings.TrimSpace(input.Name) == "" {
				return results.FailureResult[*CreatedClub, error](ErrNameRequired), nil
			}
			slug := strings.ToLower(strings.TrimSpace(input.Slug))
			if !slugPattern.MatchString(slug) {
				return results.FailureResult[*CreatedClub, error](ErrInvalidSlug), nil
			}

			tz := input.Timezone
			if tz == "" {
				tz = "America/Denver"
			}
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return results.FailureResult[*CreatedClub, error](ErrInvalidTimezone), nil
			}

			club := &clubdb.Club{
				UUID:         uuid.New(),
				Name:         strings.TrimSpace(input.Name),
				Slug:         slug,
				Timezone:     tz,
				Location:     strings.TrimSpace(input.Location),
				ContactEmail: strings.ToLower(strings.TrimSpace(input.ContactEmail)),
			}
			if err := s.repo.Create(ctx, db, club); err != nil {
				if errors.Is(err, clubdb.ErrDuplicateSlug) {
					return results.FailureResult[*CreatedClub, error](clubdb.ErrDuplicateSlug), nil
				}
				return results.OperationResult[*CreatedClub, error]{}, fmt.Errorf("failed to create club: %w", err)
			}

			if err := s.races.BootstrapRace(ctx, db, club.UUID, loc); err != nil {
				return results.OperationResult[*CreatedClub, error]{}, fmt.Errorf("failed to bootstrap initial race: %w", err)
			}

			created := &CreatedClub{ClubInfo: toClubInfo(club)}

			if input.AdminEmail != "" {
				adminUUID, password, err := s.users.EnsureUser(ctx, db, input.AdminEmail)
				if err != nil {
					return results.OperationResult[*CreatedClub, error]{}, fmt.Errorf("failed to provision admin user: %w", err)
				}
				if err := s.granter.GrantClubRole(ctx, db, adminUUID, club.UUID, "club_admin"); err != nil {
					return results.OperationResult[*CreatedClub, error]{}, fmt.Errorf("failed to grant club admin: %w", err)
				}
				if err := s.repo.SetOwner(ctx, db, club.UUID, adminUUID); err != nil {
					return results.OperationResult[*CreatedClub, error]{}, fmt.Errorf("failed to set club owner: %w", err)
				}
				created.OwnerUserID = &adminUUID
				created.AdminPassword = password
			}

			return results.SuccessResult[*CreatedClub, error](created), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// GetBySlug retrieves a club by slug. Soft-deleted clubs are invisible unless
// includeDeleted is set.
func (s *ClubService) GetBySlug(ctx context.Context, slug string, includeDeleted bool) (*ClubInfo, error) {
	result, err := operation.Run(ctx, s.deps, "GetClubBySlug", slug,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*ClubInfo, error], error) {
			club, err := s.repo.GetBySlug(ctx, db, slug, includeDeleted)
			if err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[*ClubInfo, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[*ClubInfo, error]{}, fmt.Errorf("failed to get club: %w", err)
			}
			info := toClubInfo(club)
			return results.SuccessResult[*ClubInfo, error](&info), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// GetByUUID retrieves a club by UUID.
func (s *ClubService) GetByUUID(ctx context.Context, clubUUID uuid.UUID, includeDeleted bool) (*ClubInfo, error) {
	result, err := operation.Run(ctx, s.deps, "GetClubByUUID", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*ClubInfo, error], error) {
			club, err := s.repo.GetByUUID(ctx, db, clubUUID, includeDeleted)
			if err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[*ClubInfo, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[*ClubInfo, error]{}, fmt.Errorf("failed to get club: %w", err)
			}
			info := toClubInfo(club)
			return results.SuccessResult[*ClubInfo, error](&info), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// List returns clubs matching the filter.
func (s *ClubService) List(ctx context.Context, filter clubdb.ListFilter) ([]ClubInfo, error) {
	result, err := operation.Run(ctx, s.deps, "ListClubs", string(filter.Status),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[[]ClubInfo, error], error) {
			clubs, err := s.repo.List(ctx, db, filter)
			if err != nil {
				return results.OperationResult[[]ClubInfo, error]{}, fmt.Errorf("failed to list clubs: %w", err)
			}
			infos := make([]ClubInfo, len(clubs))
			for i := range clubs {
				infos[i] = toClubInfo(&clubs[i])
			}
			return results.SuccessResult[[]ClubInfo, error](infos), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// Count returns the number of clubs, optionally including soft-deleted ones.
func (s *ClubService) Count(ctx context.Context, includeDeleted bool) (int, error) {
	result, err := operation.Run(ctx, s.deps, "CountClubs", "",
		func(ctx context.Context, db bun.IDB) (results.OperationResult[int, error], error) {
			n, err := s.repo.Count(ctx, db, includeDeleted)
			if err != nil {
				return results.OperationResult[int, error]{}, fmt.Errorf("failed to count clubs: %w", err)
			}
			return results.SuccessResult[int, error](n), nil
		})
	if err != nil {
		return 0, err
	}
	return *result.Success, nil
}

// UpdateClub patches a club. The slug is mutable only until the club has run a
// race; after that it is frozen because it names broadcast topics and public
// URLs that clients already hold.
func (s *ClubService) UpdateClub(ctx context.Context, clubUUID uuid.UUID, input UpdateClubInput) (*ClubInfo, error) {
	result, err := operation.Run(ctx, s.deps, "UpdateClub", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*ClubInfo, error], error) {
			club, err := s.repo.GetByUUID(ctx, db, clubUUID, true)
			if err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[*ClubInfo, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[*ClubInfo, error]{}, fmt.Errorf("failed to load club: %w", err)
			}

			if input.Name != nil {
				if strings.TrimSpace(*input.Name) == "" {
					return results.FailureResult[*ClubInfo, error](ErrNameRequired), nil
				}
				club.Name = strings.TrimSpace(*input.Name)
			}

			if input.Slug != nil {
				slug := strings.ToLower(strings.TrimSpace(*input.Slug))
				if slug != club.Slug {
					if !slugPattern.MatchString(slug) {
						return results.FailureResult[*ClubInfo, error](ErrInvalidSlug), nil
					}
					raced, err := s.races.HasRace(ctx, db, clubUUID)
					if err != nil {
						return results.OperationResult[*ClubInfo, error]{}, fmt.Errorf("failed to check race history: %w", err)
					}
					if raced {
						return results.FailureResult[*ClubInfo, error](ErrSlugImmutable), nil
					}
					club.Slug = slug
				}
			}

			if input.Timezone != nil {
				if _, err := time.LoadLocation(*input.Timezone); err != nil {
					return results.FailureResult[*ClubInfo, error](ErrInvalidTimezone), nil
				}
				club.Timezone = *input.Timezone
			}
			if input.Location != nil {
				club.Location = strings.TrimSpace(*input.Location)
			}
			if input.ContactEmail != nil {
				club.ContactEmail = strings.ToLower(strings.TrimSpace(*input.ContactEmail))
			}

			if err := s.repo.Update(ctx, db, club); err != nil {
				if errors.Is(err, clubdb.ErrDuplicateSlug) {
					return results.FailureResult[*ClubInfo, error](clubdb.ErrDuplicateSlug), nil
				}
				return results.OperationResult[*ClubInfo, error]{}, fmt.Errorf("failed to update club: %w", err)
			}

			info := toClubInfo(club)
			return results.SuccessResult[*ClubInfo, error](&info), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// SoftDelete marks the club deleted, hiding it from public lookups while
// preserving all data.
func (s *ClubService) SoftDelete(ctx context.Context, clubUUID uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "SoftDeleteClub", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			if err := s.repo.SoftDelete(ctx, db, clubUUID, time.Now().UTC()); err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[struct{}, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to soft delete club: %w", err)
			}
			return results.SuccessResult[struct{}, error](struct{}{}), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// Restore clears the soft-delete mark.
func (s *ClubService) Restore(ctx context.Context, clubUUID uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "RestoreClub", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			if err := s.repo.Restore(ctx, db, clubUUID); err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[struct{}, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to restore club: %w", err)
			}
			return results.SuccessResult[struct{}, error](struct{}{}), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// HardDelete permanently removes the club row. Dependent rows go with it via
// cascading foreign keys.
func (s *ClubService) HardDelete(ctx context.Context, clubUUID uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "HardDeleteClub", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			if err := s.repo.HardDelete(ctx, db, clubUUID); err != nil {
				if errors.Is(err, clubdb.ErrNotFound) {
					return results.FailureResult[struct{}, error](clubdb.ErrNotFound), nil
				}
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to hard delete club: %w", err)
			}
			return results.SuccessResult[struct{}, error](struct{}{}), nil
		})
	if err != nil {
		return err
	}
	if result.IsFailure() {
		return *result.Failure
	}
	return nil
}

// OwnerUserID exposes the owner lookup for the access gate.
func (s *ClubService) OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error) {
	return s.repo.OwnerUserID(ctx, db, clubUUID)
}

func toClubInfo(c *clubdb.Club) ClubInfo {
	return ClubInfo{
		UUID:         c.UUID,
		Name:         c.Name,
		Slug:         c.Slug,
		Timezone:     c.Timezone,
		Location:     c.Location,
		ContactEmail: c.ContactEmail,
		OwnerUserID:  c.OwnerUserID,
		DeletedAt:    c.DeletedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
