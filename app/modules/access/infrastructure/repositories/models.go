package accessdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ToolRaceManagement is the only tool the permission system knows about.
const ToolRaceManagement = "race_management"

// Permission roles, strongest first.
const (
	RoleSuperAdmin   = "super_admin"
	RoleClubAdmin    = "club_admin"
	RoleClubOperator = "club_operator"
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleClubAdmin, RoleClubOperator:
		return true
	}
	return false
}

// ToolPermission grants a user a role for a tool, scoped to a club. The club
// reference is null exactly for super_admin grants; (user, tool, club) is
// unique.
type ToolPermission struct {
	bun.BaseModel `bun:"table:tool_permissions,alias:tp"`

	ID        int64      `bun:"id,pk,autoincrement"`
	UserUUID  uuid.UUID  `bun:"user_uuid,notnull,type:uuid"`
	Tool      string     `bun:"tool,notnull"`
	Role      string     `bun:"role,notnull"`
	ClubUUID  *uuid.UUID `bun:"club_uuid,nullzero,type:uuid"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
