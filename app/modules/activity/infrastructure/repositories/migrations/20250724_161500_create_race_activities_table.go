package activitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating race_activities table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS race_activities (
				uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				club_uuid UUID NOT NULL REFERENCES clubs(uuid) ON DELETE CASCADE,
				race_uuid UUID REFERENCES races(uuid) ON DELETE SET NULL,
				activity_type VARCHAR(32) NOT NULL CHECK (activity_type IN (
					'counter_update', 'reset_performed', 'settings_changed',
					'admin_login', 'admin_logout', 'notification_sent',
					'race_started', 'race_completed'
				)),
				message TEXT NOT NULL CHECK (message <> ''),
				metadata JSONB,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_race_activities_club_created
				ON race_activities(club_uuid, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_race_activities_type
				ON race_activities(activity_type);
		`)
		if err != nil {
			return fmt.Errorf("failed to create race_activities table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping race_activities table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS race_activities;`); err != nil {
			return fmt.Errorf("failed to drop race_activities table: %w", err)
		}
		return nil
	})
}
