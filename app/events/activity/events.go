package activityevents

import "time"

// Subjects consumed and produced by the activity module.
const (
	// RecordRequestV1 lets other services append an activity entry for a club.
	RecordRequestV1 = "activity.record.request.v1"
)

// RecordRequestPayloadV1 requests an activity-log append.
type RecordRequestPayloadV1 struct {
	ClubUUID     string         `json:"club_uuid"`
	RaceUUID     *string        `json:"race_uuid,omitempty"`
	ActivityType string         `json:"activity_type"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// EntryPayloadV1 is broadcast to the admin activity topic after an entry is
// recorded.
type EntryPayloadV1 struct {
	ActivityUUID string         `json:"activity_uuid"`
	ClubSlug     string         `json:"club_slug"`
	ActivityType string         `json:"activity_type"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CountPayloadV1 is broadcast to the admin topic so counter badges can update
// without refetching the feed.
type CountPayloadV1 struct {
	ClubSlug string `json:"club_slug"`
	Count    int    `json:"count"`
}
