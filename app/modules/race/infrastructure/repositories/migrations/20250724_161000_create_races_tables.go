package racemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating races and race_settings tables...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS races (
				uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				club_uuid UUID NOT NULL REFERENCES clubs(uuid) ON DELETE CASCADE,
				at_gate INTEGER NOT NULL DEFAULT 0 CHECK (at_gate >= 0),
				in_staging INTEGER NOT NULL DEFAULT 0 CHECK (in_staging >= 0),
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT chk_counter_ordering CHECK (
					(at_gate = 0 AND in_staging = 0) OR at_gate < in_staging
				)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_races_one_active_per_club
				ON races(club_uuid) WHERE active;

			CREATE TABLE IF NOT EXISTS race_settings (
				uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				race_uuid UUID NOT NULL UNIQUE REFERENCES races(uuid) ON DELETE CASCADE,
				registration_deadline TIMESTAMPTZ,
				race_start_time TIMESTAMPTZ,
				notification_message TEXT,
				notification_expires_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create races tables: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping races and race_settings tables...")
		if _, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS race_settings;
			DROP TABLE IF EXISTS races;
		`); err != nil {
			return fmt.Errorf("failed to drop races tables: %w", err)
		}
		return nil
	})
}
