package raceevents

import "time"

// Subjects consumed and produced by the race module over the event bus.
const (
	// CounterUpdateRequestV1 is published by non-HTTP surfaces (the gateway,
	// operator tooling) to request a counter change for a club.
	CounterUpdateRequestV1 = "race.counter.update.request.v1"
	// CounterUpdateResultV1 carries the outcome of a counter update request.
	CounterUpdateResultV1 = "race.counter.update.result.v1"
	// StateRequestV1 asks for the current race state of a club.
	StateRequestV1 = "race.state.request.v1"
	// StateResponseV1 is the reply to StateRequestV1.
	StateResponseV1 = "race.state.response.v1"
)

// CounterUpdateRequestPayloadV1 requests a counter update on a club's active race.
type CounterUpdateRequestPayloadV1 struct {
	ClubSlug  string `json:"club_slug"`
	UserID    string `json:"user_id"`
	AtGate    int    `json:"at_gate"`
	InStaging int    `json:"in_staging"`
}

// CounterUpdateResultPayloadV1 reports the outcome of a counter update request.
type CounterUpdateResultPayloadV1 struct {
	ClubSlug  string `json:"club_slug"`
	Applied   bool   `json:"applied"`
	Reason    string `json:"reason,omitempty"`
	AtGate    int    `json:"at_gate"`
	InStaging int    `json:"in_staging"`
}

// StateRequestPayloadV1 asks for a club's current race state.
type StateRequestPayloadV1 struct {
	ClubSlug string `json:"club_slug"`
}

// StateResponsePayloadV1 is the current race state of a club.
type StateResponsePayloadV1 struct {
	ClubSlug             string     `json:"club_slug"`
	AtGate               int        `json:"at_gate"`
	InStaging            int        `json:"in_staging"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	RaceStartTime        *time.Time `json:"race_start_time,omitempty"`
	NotificationMessage  *string    `json:"notification_message,omitempty"`
	NotificationActive   bool       `json:"notification_active"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// RaceUpdatedPayloadV1 is broadcast to the public and admin topics after a
// successful counter mutation.
type RaceUpdatedPayloadV1 struct {
	ClubSlug     string    `json:"club_slug"`
	OldAtGate    int       `json:"old_at_gate"`
	OldInStaging int       `json:"old_in_staging"`
	AtGate       int       `json:"at_gate"`
	InStaging    int       `json:"in_staging"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RaceResetPayloadV1 is broadcast after a race reset.
type RaceResetPayloadV1 struct {
	ClubSlug             string     `json:"club_slug"`
	ResetType            string     `json:"reset_type"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	RaceStartTime        *time.Time `json:"race_start_time,omitempty"`
	ResetAt              time.Time  `json:"reset_at"`
}

// NotificationPayloadV1 is broadcast to the admin topic when a live
// notification message becomes active.
type NotificationPayloadV1 struct {
	ClubSlug  string    `json:"club_slug"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}
