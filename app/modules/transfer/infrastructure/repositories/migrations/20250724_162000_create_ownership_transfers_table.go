package transfermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ownership_transfers table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS ownership_transfers (
				uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				club_uuid UUID NOT NULL REFERENCES clubs(uuid) ON DELETE CASCADE,
				from_user_id UUID NOT NULL REFERENCES users(uuid) ON DELETE CASCADE,
				to_user_email VARCHAR(255) NOT NULL,
				token VARCHAR(64) NOT NULL UNIQUE,
				expires_at TIMESTAMPTZ NOT NULL,
				completed_at TIMESTAMPTZ,
				cancelled_at TIMESTAMPTZ,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT chk_single_terminal_state CHECK (
					completed_at IS NULL OR cancelled_at IS NULL
				)
			);
			CREATE INDEX IF NOT EXISTS idx_ownership_transfers_club
				ON ownership_transfers(club_uuid);
		`)
		if err != nil {
			return fmt.Errorf("failed to create ownership_transfers table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ownership_transfers table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS ownership_transfers;`); err != nil {
			return fmt.Errorf("failed to drop ownership_transfers table: %w", err)
		}
		return nil
	})
}
