package accessservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"

	accessdb "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/shared/operation"
	"github.com/bmxtools/raceday/app/shared/results"
	"github.com/bmxtools/raceday/internal/observability"
)

// Role is the effective role a user holds for a club, strongest first:
// super_admin > owner > club_admin > club_operator > none.
type Role string

const (
	RoleNone         Role = ""
	RoleSuperAdmin   Role = "super_admin"
	RoleOwner        Role = "owner"
	RoleClubAdmin    Role = "club_admin"
	RoleClubOperator Role = "club_operator"
)

// ClubDirectory is the slice of the club module the gate needs.
type ClubDirectory interface {
	// OwnerUserID returns the club's owner reference, nil when unowned.
	OwnerUserID(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (*uuid.UUID, error)
}

// DirectoryUser is a user as seen by member management.
type DirectoryUser struct {
	UUID  uuid.UUID
	Email string
}

// UserDirectory is the slice of the user module member management needs.
type UserDirectory interface {
	GetByEmail(ctx context.Context, db bun.IDB, email string) (*DirectoryUser, error)
	GetByUUID(ctx context.Context, db bun.IDB, userUUID uuid.UUID) (*DirectoryUser, error)
}

// ErrDirectoryUserNotFound is the sentinel UserDirectory implementations
// return for missing users.
var ErrDirectoryUserNotFound = errors.New("directory user not found")

// Member is a club member with their resolved role.
type Member struct {
	UserUUID uuid.UUID
	Email    string
	Role     string
}

// AccessService resolves effective roles and manages club memberships.
type AccessService struct {
	repo  accessdb.Repository
	clubs ClubDirectory
	users UserDirectory
	deps  operation.Deps
}

// NewAccessService creates a new AccessService.
func NewAccessService(
	repo accessdb.Repository,
	clubs ClubDirectory,
	users UserDirectory,
	logger *slog.Logger,
	metrics observability.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *AccessService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccessService{
		repo:  repo,
		clubs: clubs,
		users: users,
		deps: operation.Deps{
			Logger:  logger,
			Metrics: metrics,
			Tracer:  tracer,
			DB:      db,
			Service: "AccessService",
		},
	}
}

// ResolveRole returns the strongest role the user holds for the club.
func (s *AccessService) ResolveRole(ctx context.Context, userUUID, clubUUID uuid.UUID) (Role, error) {
	result, err := operation.Run(ctx, s.deps, "ResolveRole", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[Role, error], error) {
			role, err := s.resolveRole(ctx, db, userUUID, clubUUID)
			if err != nil {
				return results.OperationResult[Role, error]{}, err
			}
			return results.SuccessResult[Role, error](role), nil
		})
	if err != nil {
		return RoleNone, err
	}
	return *result.Success, nil
}

func (s *AccessService) resolveRole(ctx context.Context, db bun.IDB, userUUID, clubUUID uuid.UUID) (Role, error) {
	super, err := s.repo.HasSuperAdmin(ctx, db, userUUID)
	if err != nil {
		return RoleNone, fmt.Errorf("failed to check super admin: %w", err)
	}
	if super {
		return RoleSuperAdmin, nil
	}

	ownerID, err := s.clubs.OwnerUserID(ctx, db, clubUUID)
	if err != nil {
		return RoleNone, fmt.Errorf("failed to resolve club owner: %w", err)
	}
	if ownerID != nil && *ownerID == userUUID {
		return RoleOwner, nil
	}

	perm, err := s.repo.GetForUserClub(ctx, db, userUUID, clubUUID)
	if err != nil {
		if errors.Is(err, accessdb.ErrNotFound) {
			return RoleNone, nil
		}
		return RoleNone, fmt.Errorf("failed to get permission: %w", err)
	}

	switch perm.Role {
	case accessdb.RoleClubAdmin:
		return RoleClubAdmin, nil
	case accessdb.RoleClubOperator:
		return RoleClubOperator, nil
	}
	return RoleNone, nil
}

// ClubsForUser returns the clubs the user holds an explicit grant for. Owners
// without a grant are not included; login activity follows grants.
func (s *AccessService) ClubsForUser(ctx context.Context, userUUID uuid.UUID) ([]uuid.UUID, error) {
	result, err := operation.Run(ctx, s.deps, "ClubsForUser", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[[]uuid.UUID, error], error) {
			perms, err := s.repo.ListForUser(ctx, db, userUUID)
			if err != nil {
				return results.OperationResult[[]uuid.UUID, error]{}, fmt.Errorf("failed to list permissions: %w", err)
			}
			clubs := make([]uuid.UUID, 0, len(perms))
			for _, perm := range perms {
				if perm.ClubUUID != nil {
					clubs = append(clubs, *perm.ClubUUID)
				}
			}
			return results.SuccessResult[[]uuid.UUID, error](clubs), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

// CanManageClub reports whether the user may administer the club: super-admin,
// owner, or an explicit club_admin grant.
func (s *AccessService) CanManageClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error) {
	role, err := s.ResolveRole(ctx, userUUID, clubUUID)
	if err != nil {
		return false, err
	}
	switch role {
	case RoleSuperAdmin, RoleOwner, RoleClubAdmin:
		return true, nil
	}
	return false, nil
}

// CanMutateCounters reports whether the user may change race counters: any
// recognized role for the club, or super-admin.
func (s *AccessService) CanMutateCounters(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error) {
	role, err := s.ResolveRole(ctx, userUUID, clubUUID)
	if err != nil {
		return false, err
	}
	return role != RoleNone, nil
}

// CanSoftDeleteClub is allowed for super-admins (any club) and owners (their
// own club).
func (s *AccessService) CanSoftDeleteClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error) {
	role, err := s.ResolveRole(ctx, userUUID, clubUUID)
	if err != nil {
		return false, err
	}
	return role == RoleSuperAdmin || role == RoleOwner, nil
}

// CanRestoreClub is super-admin-only, unconditionally.
func (s *AccessService) CanRestoreClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error) {
	role, err := s.ResolveRole(ctx, userUUID, clubUUID)
	if err != nil {
		return false, err
	}
	return role == RoleSuperAdmin, nil
}

// CanHardDeleteClub is super-admin-only, unconditionally.
func (s *AccessService) CanHardDeleteClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error) {
	return s.CanRestoreClub(ctx, userUUID, clubUUID)
}

// IsSuperAdmin reports whether the user holds the global grant.
func (s *AccessService) IsSuperAdmin(ctx context.Context, userUUID uuid.UUID) (bool, error) {
	result, err := operation.Run(ctx, s.deps, "IsSuperAdmin", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[bool, error], error) {
			super, err := s.repo.HasSuperAdmin(ctx, db, userUUID)
			if err != nil {
				return results.OperationResult[bool, error]{}, err
			}
			return results.SuccessResult[bool, error](super), nil
		})
	if err != nil {
		return false, err
	}
	return *result.Success, nil
}

// GrantPermission creates an arbitrary grant. Used by club bootstrap and
// super-admin seeding; member flows use AddMember.
func (s *AccessService) GrantPermission(ctx context.Context, userUUID uuid.UUID, role string, clubUUID *uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "GrantPermission", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			perm := &accessdb.ToolPermission{
				UserUUID: userUUID,
				Tool:     accessdb.ToolRaceManagement,
				Role:     role,
				ClubUUID: clubUUID,
			}
			if err := s.repo.Create(ctx, db, perm); err != nil {
				if errors.Is(err, accessdb.ErrDuplicatePermission) || errors.Is(err, accessdb.ErrInvalidScope) {
					return results.FailureResult[struct{}, error](err), nil
				}
				return results.OperationResult[struct{}, error]{}, err
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

// AddMember grants a user club access by email.
func (s *AccessService) AddMember(ctx context.Context, clubUUID uuid.UUID, email, role string) (*Member, error) {
	result, err := operation.Run(ctx, s.deps, "AddMember", email,
		func(ctx context.Context, db bun.IDB) (results.OperationResult[*Member, error], error) {
			if role != accessdb.RoleClubAdmin && role != accessdb.RoleClubOperator {
				return results.FailureResult[*Member, error](ErrInvalidRole), nil
			}

			user, err := s.users.GetByEmail(ctx, db, email)
			if err != nil {
				if errors.Is(err, ErrDirectoryUserNotFound) {
					return results.FailureResult[*Member, error](ErrMemberUserNotFound), nil
				}
				return results.OperationResult[*Member, error]{}, fmt.Errorf("failed to look up user: %w", err)
			}

			perm := &accessdb.ToolPermission{
				UserUUID: user.UUID,
				Tool:     accessdb.ToolRaceManagement,
				Role:     role,
				ClubUUID: &clubUUID,
			}
			if err := s.repo.Create(ctx, db, perm); err != nil {
				if errors.Is(err, accessdb.ErrDuplicatePermission) {
					return results.FailureResult[*Member, error](ErrAlreadyMember), nil
				}
				return results.OperationResult[*Member, error]{}, fmt.Errorf("failed to create permission: %w", err)
			}

			return results.SuccessResult[*Member, error](&Member{
				UserUUID: user.UUID,
				Email:    user.Email,
				Role:     role,
			}), nil
		})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// UpdateMember changes a member's role.
func (s *AccessService) UpdateMember(ctx context.Context, clubUUID, userUUID uuid.UUID, role string) error {
	result, err := operation.Run(ctx, s.deps, "UpdateMember", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			if role != accessdb.RoleClubAdmin && role != accessdb.RoleClubOperator {
				return results.FailureResult[struct{}, error](ErrInvalidRole), nil
			}
			if err := s.repo.UpdateRole(ctx, db, userUUID, clubUUID, role); err != nil {
				if errors.Is(err, accessdb.ErrNotFound) {
					return results.FailureResult[struct{}, error](ErrNotMember), nil
				}
				return results.OperationResult[struct{}, error]{}, err
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

// RemoveMember revokes a member's club access. The owner cannot be removed;
// ownership must be transferred first.
func (s *AccessService) RemoveMember(ctx context.Context, clubUUID, userUUID uuid.UUID) error {
	result, err := operation.Run(ctx, s.deps, "RemoveMember", userUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
			ownerID, err := s.clubs.OwnerUserID(ctx, db, clubUUID)
			if err != nil {
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("failed to resolve club owner: %w", err)
			}
			if ownerID != nil && *ownerID == userUUID {
				return results.FailureResult[struct{}, error](ErrCannotRemoveOwner), nil
			}

			if err := s.repo.Delete(ctx, db, userUUID, clubUUID); err != nil {
				if errors.Is(err, accessdb.ErrNotFound) {
					return results.FailureResult[struct{}, error](ErrNotMember), nil
				}
				return results.OperationResult[struct{}, error]{}, err
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

// ListMembers returns the club's members with resolved emails.
func (s *AccessService) ListMembers(ctx context.Context, clubUUID uuid.UUID) ([]Member, error) {
	result, err := operation.Run(ctx, s.deps, "ListMembers", clubUUID.String(),
		func(ctx context.Context, db bun.IDB) (results.OperationResult[[]Member, error], error) {
			perms, err := s.repo.ListForClub(ctx, db, clubUUID)
			if err != nil {
				return results.OperationResult[[]Member, error]{}, err
			}

			members := make([]Member, 0, len(perms))
			for _, perm := range perms {
				member := Member{UserUUID: perm.UserUUID, Role: perm.Role}
				user, err := s.users.GetByUUID(ctx, db, perm.UserUUID)
				if err != nil && !errors.Is(err, ErrDirectoryUserNotFound) {
					return results.OperationResult[[]Member, error]{}, fmt.Errorf("failed to resolve member user: %w", err)
				}
				if user != nil {
					member.Email = user.Email
				}
				members = append(members, member)
			}
			return results.SuccessResult[[]Member, error](members), nil
		})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}
