package userdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User represents an admin panel account.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UUID         uuid.UUID `bun:"uuid,pk,type:uuid"`
	Email        string    `bun:"email,notnull,unique"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
