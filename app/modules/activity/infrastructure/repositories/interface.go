package activitydb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for activity persistence. The log is
// append-only: there is no update or delete.
type Repository interface {
	Create(ctx context.Context, db bun.IDB, activity *RaceActivity) error

	// RecentForClub returns the newest entries first, capped at limit.
	RecentForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, limit int) ([]RaceActivity, error)

	// CountForClub returns the total number of entries for the club.
	CountForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (int, error)

	// ListForClubSince returns entries created at or after since, newest
	// first. Feeds the export and dashboard surfaces.
	ListForClubSince(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, since time.Time) ([]RaceActivity, error)

	// CountByTypeSince aggregates entry counts per activity type across all
	// clubs since the given time. Feeds the dashboard chart.
	CountByTypeSince(ctx context.Context, db bun.IDB, since time.Time) (map[string]int, error)
}
