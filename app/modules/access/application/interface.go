package accessservice

import (
	"context"

	"github.com/google/uuid"
)

// Service is the access gate consumed by the HTTP layer and other modules.
type Service interface {
	ResolveRole(ctx context.Context, userUUID, clubUUID uuid.UUID) (Role, error)
	CanManageClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error)
	CanMutateCounters(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error)
	CanSoftDeleteClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error)
	CanRestoreClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error)
	CanHardDeleteClub(ctx context.Context, userUUID, clubUUID uuid.UUID) (bool, error)
	IsSuperAdmin(ctx context.Context, userUUID uuid.UUID) (bool, error)
	ClubsForUser(ctx context.Context, userUUID uuid.UUID) ([]uuid.UUID, error)

	GrantPermission(ctx context.Context, userUUID uuid.UUID, role string, clubUUID *uuid.UUID) error
	AddMember(ctx context.Context, clubUUID uuid.UUID, email, role string) (*Member, error)
	UpdateMember(ctx context.Context, clubUUID, userUUID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, clubUUID, userUUID uuid.UUID) error
	ListMembers(ctx context.Context, clubUUID uuid.UUID) ([]Member, error)
}

var _ Service = (*AccessService)(nil)
