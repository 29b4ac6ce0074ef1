package clubmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating clubs table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS clubs (
				uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				name VARCHAR(100) NOT NULL,
				slug VARCHAR(100) NOT NULL UNIQUE,
				timezone VARCHAR(64) NOT NULL DEFAULT 'America/Denver',
				location VARCHAR(255),
				contact_email VARCHAR(255),
				owner_user_id UUID REFERENCES users(uuid) ON DELETE SET NULL,
				deleted_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_clubs_slug ON clubs(slug);
			CREATE INDEX IF NOT EXISTS idx_clubs_deleted_at ON clubs(deleted_at);
		`)
		if err != nil {
			return fmt.Errorf("failed to create clubs table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping clubs table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS clubs;`); err != nil {
			return fmt.Errorf("failed to drop clubs table: %w", err)
		}
		return nil
	})
}
