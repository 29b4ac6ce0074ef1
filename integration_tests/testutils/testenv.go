// Package testutils provisions the shared environment integration tests run
// in: containerized Postgres and NATS, a migrated bun.DB, and the event bus.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bmxtools/raceday/app/eventbus"
	accessmigrations "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories/migrations"
	activitymigrations "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories/migrations"
	clubmigrations "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories/migrations"
	racemigrations "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories/migrations"
	transfermigrations "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories/migrations"
	usermigrations "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories/migrations"
	"github.com/bmxtools/raceday/integration_tests/containers"
)

// TestEnvironment holds everything an integration test needs.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *natscontainer.NATSContainer
	DB            *bun.DB
	EventBus      eventbus.EventBus
	NatsURL       string
	T             *testing.T
}

// NewTestEnvironment starts the containers, migrates the schema, and connects
// the event bus.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to setup nats container: %w", err)
	}

	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		cleanup(ctx, pgContainer, natsContainer)
		cancel()
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	db := bun.NewDB(sqldb, pgdialect.New())

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		cleanup(ctx, pgContainer, natsContainer)
		cancel()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bus, err := eventbus.New(ctx, natsURL, slog.Default())
	if err != nil {
		db.Close()
		cleanup(ctx, pgContainer, natsContainer)
		cancel()
		return nil, fmt.Errorf("failed to connect event bus: %w", err)
	}
	if err := eventbus.InitializeStreams(ctx, bus); err != nil {
		bus.Close()
		db.Close()
		cleanup(ctx, pgContainer, natsContainer)
		cancel()
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	return &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		NatsContainer: natsContainer,
		DB:            db,
		EventBus:      bus,
		NatsURL:       natsURL,
		T:             t,
	}, nil
}

// Close tears the environment down in reverse of setup order.
func (env *TestEnvironment) Close() {
	if env.EventBus != nil {
		_ = env.EventBus.Close()
	}
	if env.DB != nil {
		_ = env.DB.Close()
	}
	cleanup(env.Ctx, env.PgContainer, env.NatsContainer)
	env.CancelContext()
}

// TruncateAll wipes row data between tests while keeping the schema.
func (env *TestEnvironment) TruncateAll(ctx context.Context) error {
	_, err := env.DB.ExecContext(ctx, `
		TRUNCATE ownership_transfers, race_activities, race_settings, races,
			tool_permissions, clubs, users CASCADE`)
	return err
}

func runMigrations(ctx context.Context, db *bun.DB) error {
	// Same order as cmd/bun: later modules hold foreign keys into earlier ones.
	sets := []*migrate.Migrations{
		usermigrations.Migrations,
		accessmigrations.Migrations,
		clubmigrations.Migrations,
		racemigrations.Migrations,
		activitymigrations.Migrations,
		transfermigrations.Migrations,
	}
	for _, set := range sets {
		migrator := migrate.NewMigrator(db, set)
		if err := migrator.Init(ctx); err != nil {
			return err
		}
		if _, err := migrator.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func cleanup(ctx context.Context, pg, nats testcontainers.Container) {
	if nats != nil {
		_ = nats.Terminate(ctx)
	}
	if pg != nil {
		_ = pg.Terminate(ctx)
	}
}
