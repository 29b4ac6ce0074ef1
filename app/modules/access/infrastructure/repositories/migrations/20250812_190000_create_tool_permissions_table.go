package accessmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tool_permissions table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS tool_permissions (
				id BIGSERIAL PRIMARY KEY,
				user_uuid UUID NOT NULL REFERENCES users(uuid) ON DELETE CASCADE,
				tool VARCHAR(50) NOT NULL,
				role VARCHAR(20) NOT NULL,
				club_uuid UUID REFERENCES clubs(uuid) ON DELETE CASCADE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT chk_super_admin_scope CHECK (
					(role = 'super_admin' AND club_uuid IS NULL)
					OR (role <> 'super_admin' AND club_uuid IS NOT NULL)
				)
			);
			CREATE UNIQUE INDEX IF NOT EXISTS idx_tool_permissions_user_tool_club
				ON tool_permissions(user_uuid, tool, COALESCE(club_uuid, '00000000-0000-0000-0000-000000000000'::uuid));
			CREATE INDEX IF NOT EXISTS idx_tool_permissions_club ON tool_permissions(club_uuid);
		`)
		if err != nil {
			return fmt.Errorf("failed to create tool_permissions table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tool_permissions table...")
		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS tool_permissions;`); err != nil {
			return fmt.Errorf("failed to drop tool_permissions table: %w", err)
		}
		return nil
	})
}
