package activitydb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Activity types form a closed set; the writer rejects anything else.
const (
	TypeCounterUpdate    = "counter_update"
	TypeResetPerformed   = "reset_performed"
	TypeSettingsChanged  = "settings_changed"
	TypeAdminLogin       = "admin_login"
	TypeAdminLogout      = "admin_logout"
	TypeNotificationSent = "notification_sent"
	TypeRaceStarted      = "race_started"
	TypeRaceCompleted    = "race_completed"
)

var validTypes = map[string]struct{}{
	TypeCounterUpdate:    {},
	TypeResetPerformed:   {},
	TypeSettingsChanged:  {},
	TypeAdminLogin:       {},
	TypeAdminLogout:      {},
	TypeNotificationSent: {},
	TypeRaceStarted:      {},
	TypeRaceCompleted:    {},
}

// ValidType reports whether t is one of the enumerated activity types.
func ValidType(t string) bool {
	_, ok := validTypes[t]
	return ok
}

// RaceActivity is an append-only audit entry. Rows are never updated or
// deleted; the only removal path is the cascade from a hard club delete.
type RaceActivity struct {
	bun.BaseModel `bun:"table:race_activities,alias:ra"`

	UUID         uuid.UUID      `bun:"uuid,pk,type:uuid"`
	ClubUUID     uuid.UUID      `bun:"club_uuid,notnull,type:uuid"`
	RaceUUID     *uuid.UUID     `bun:"race_uuid,nullzero,type:uuid"`
	ActivityType string         `bun:"activity_type,notnull"`
	Message      string         `bun:"message,notnull"`
	Metadata     map[string]any `bun:"metadata,type:jsonb,nullzero"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
