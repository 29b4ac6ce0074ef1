package activitydb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using bun.
type Impl struct {
	db *bun.DB
}

// NewRepository creates a new activity repository.
func NewRepository(db *bun.DB) *Impl {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db != nil {
		return db
	}
	return r.db
}

// Create appends an activity entry.
func (r *Impl) Create(ctx context.Context, db bun.IDB, activity *RaceActivity) error {
	if _, err := r.resolveDB(db).NewInsert().Model(activity).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// RecentForClub returns the newest entries first, capped at limit.
func (r *Impl) RecentForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, limit int) ([]RaceActivity, error) {
	var activities []RaceActivity
	err := r.resolveDB(db).NewSelect().
		Model(&activities).
		Where("ra.club_uuid = ?", clubUUID).
		Order("ra.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent activities: %w", err)
	}
	return activities, nil
}

// CountForClub returns the total number of entries for the club.
func (r *Impl) CountForClub(ctx context.Context, db bun.IDB, clubUUID uuid.UUID) (int, error) {
	count, err := r.resolveDB(db).NewSelect().
		Model((*RaceActivity)(nil)).
		Where("ra.club_uuid = ?", clubUUID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

// ListForClubSince returns entries created at or after since, newest first.
func (r *Impl) ListForClubSince(ctx context.Context, db bun.IDB, clubUUID uuid.UUID, since time.Time) ([]RaceActivity, error) {
	var activities []RaceActivity
	err := r.resolveDB(db).NewSelect().
		Model(&activities).
		Where("ra.club_uuid = ?", clubUUID).
		Where("ra.created_at >= ?", since).
		Order("ra.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities since %s: %w", since, err)
	}
	return activities, nil
}

// CountByTypeSince aggregates entry counts per activity type since the given
// time.
func (r *Impl) CountByTypeSince(ctx context.Context, db bun.IDB, since time.Time) (map[string]int, error) {
	var rows []struct {
		ActivityType string `bun:"activity_type"`
		Count        int    `bun:"count"`
	}
	err := r.resolveDB(db).NewSelect().
		Model((*RaceActivity)(nil)).
		ColumnExpr("ra.activity_type").
		ColumnExpr("COUNT(*) AS count").
		Where("ra.created_at >= ?", since).
		Group("ra.activity_type").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activities by type: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ActivityType] = row.Count
	}
	return counts, nil
}
