package clubdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Club represents a BMX race club. The slug doubles as the public URL segment
// and the namespace for broadcast topics.
type Club struct {
	bun.BaseModel `bun:"table:clubs,alias:c"`

	UUID         uuid.UUID  `bun:"uuid,pk,type:uuid"`
	Name         string     `bun:"name,notnull"`
	Slug         string     `bun:"slug,notnull,unique"`
	Timezone     string     `bun:"timezone,notnull,default:'America/Denver'"`
	Location     string     `bun:"location,nullzero"`
	ContactEmail string     `bun:"contact_email,nullzero"`
	OwnerUserID  *uuid.UUID `bun:"owner_user_id,nullzero,type:uuid"`
	DeletedAt    *time.Time `bun:"deleted_at,nullzero"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Deleted reports whether the club is soft-deleted.
func (c *Club) Deleted() bool {
	return c.DeletedAt != nil
}

// TimeLocation loads the club's IANA timezone, falling back to UTC when the
// stored name does not resolve.
func (c *Club) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
