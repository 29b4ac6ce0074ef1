package activityservice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Service defines the activity module's application surface.
type Service interface {
	// Record appends an entry in its own transaction and announces it.
	Record(ctx context.Context, e Entry) (*Recorded, error)

	// Append inserts within the caller's transaction; the caller announces
	// after commit.
	Append(ctx context.Context, db bun.IDB, e Entry) (*Recorded, error)

	// Announce broadcasts a recorded entry to the club topics.
	Announce(rec *Recorded)

	// RecentForClub returns the newest entries first.
	RecentForClub(ctx context.Context, clubUUID uuid.UUID, limit int) ([]ActivityInfo, error)

	// CountForClub returns the club's total entry count.
	CountForClub(ctx context.Context, clubUUID uuid.UUID) (int, error)

	// CountByTypeSince aggregates entry counts per type for the dashboard.
	CountByTypeSince(ctx context.Context, since time.Time) (map[string]int, error)

	// ExportForClub renders the club's log as an xlsx workbook.
	ExportForClub(ctx context.Context, clubUUID uuid.UUID, since time.Time) ([]byte, error)
}

var _ Service = (*ActivityService)(nil)
