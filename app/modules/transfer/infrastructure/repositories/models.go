package transferdb

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TransferTTL is how long an ownership transfer stays claimable.
const TransferTTL = 72 * time.Hour

// OwnershipTransfer hands a club from its current owner to the user holding
// the target email. Expiry is computed, never swept: an expired row simply
// stops being claimable.
type OwnershipTransfer struct {
	bun.BaseModel `bun:"table:ownership_transfers,alias:ot"`

	UUID        uuid.UUID  `bun:"uuid,pk,type:uuid"`
	ClubUUID    uuid.UUID  `bun:"club_uuid,notnull,type:uuid"`
	FromUserID  uuid.UUID  `bun:"from_user_id,notnull,type:uuid"`
	ToUserEmail string     `bun:"to_user_email,notnull"`
	Token       string     `bun:"token,notnull,unique"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
	CancelledAt *time.Time `bun:"cancelled_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Pending reports that the transfer has reached no terminal state. A pending
// transfer may still be expired.
func (t *OwnershipTransfer) Pending() bool {
	return t.CompletedAt == nil && t.CancelledAt == nil
}

// Completed reports whether the ownership reassignment happened.
func (t *OwnershipTransfer) Completed() bool {
	return t.CompletedAt != nil
}

// Cancelled reports whether the transfer was withdrawn.
func (t *OwnershipTransfer) Cancelled() bool {
	return t.CancelledAt != nil
}

// Expired reports whether the claim window has lapsed.
func (t *OwnershipTransfer) Expired() bool {
	return time.Now().After(t.ExpiresAt)
}

// Active reports whether the transfer can still be completed.
func (t *OwnershipTransfer) Active() bool {
	return t.Pending() && !t.Expired()
}

// DaysUntilExpiry returns the whole days remaining, rounded up; 0 once
// expired. A fresh transfer reports 3.
func (t *OwnershipTransfer) DaysUntilExpiry() int {
	remaining := time.Until(t.ExpiresAt)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}
