package racedb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Race holds the live staging counters for a club's race day. Exactly one
// active race exists per club; if either counter is nonzero, at_gate must be
// strictly less than in_staging.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:r"`

	UUID      uuid.UUID `bun:"uuid,pk,type:uuid"`
	ClubUUID  uuid.UUID `bun:"club_uuid,notnull,type:uuid"`
	AtGate    int       `bun:"at_gate,notnull,default:0"`
	InStaging int       `bun:"in_staging,notnull,default:0"`
	Active    bool      `bun:"active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RaceSetting is the 1:1 schedule and notification row for a race.
type RaceSetting struct {
	bun.BaseModel `bun:"table:race_settings,alias:rs"`

	UUID                  uuid.UUID  `bun:"uuid,pk,type:uuid"`
	RaceUUID              uuid.UUID  `bun:"race_uuid,notnull,unique,type:uuid"`
	RegistrationDeadline  *time.Time `bun:"registration_deadline,nullzero"`
	RaceStartTime         *time.Time `bun:"race_start_time,nullzero"`
	NotificationMessage   *string    `bun:"notification_message,nullzero"`
	NotificationExpiresAt *time.Time `bun:"notification_expires_at,nullzero"`
	CreatedAt             time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt             time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// NotificationActive reports whether a live notification message is currently
// showing: a non-empty message with an expiry still in the future.
func (s *RaceSetting) NotificationActive() bool {
	if s.NotificationMessage == nil || *s.NotificationMessage == "" {
		return false
	}
	if s.NotificationExpiresAt == nil {
		return false
	}
	return s.NotificationExpiresAt.After(time.Now())
}
