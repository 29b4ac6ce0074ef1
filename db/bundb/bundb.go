// Package bundb opens the shared Postgres connection pool and registers the
// application's models.
package bundb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	accessdb "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"
	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
	"github.com/bmxtools/raceday/config"
)

// Connect opens the pool, verifies the connection, and registers models.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	db.RegisterModel(
		(*userdb.User)(nil),
		(*accessdb.ToolPermission)(nil),
		(*clubdb.Club)(nil),
		(*racedb.Race)(nil),
		(*racedb.RaceSetting)(nil),
		(*activitydb.RaceActivity)(nil),
		(*transferdb.OwnershipTransfer)(nil),
	)

	return db, nil
}
