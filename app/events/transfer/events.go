package transferevents

import "time"

// Subjects produced by the transfer module. The notification transport (mail
// sender, bot, etc.) subscribes to these; the module never waits on delivery.
const (
	InitiatedV1 = "transfer.initiated.v1"
	CancelledV1 = "transfer.cancelled.v1"
	CompletedV1 = "transfer.completed.v1"
)

// InitiatedPayloadV1 announces a newly created ownership transfer.
type InitiatedPayloadV1 struct {
	ClubSlug    string    `json:"club_slug"`
	FromEmail   string    `json:"from_email"`
	ToUserEmail string    `json:"to_user_email"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CancelledPayloadV1 announces a cancelled transfer.
type CancelledPayloadV1 struct {
	ClubSlug    string    `json:"club_slug"`
	ToUserEmail string    `json:"to_user_email"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// CompletedPayloadV1 announces completed ownership reassignment.
type CompletedPayloadV1 struct {
	ClubSlug    string    `json:"club_slug"`
	NewOwnerID  string    `json:"new_owner_id"`
	CompletedAt time.Time `json:"completed_at"`
}
