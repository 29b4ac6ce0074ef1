// Package app assembles the race-day service: database, event bus, broadcast
// dispatcher, the domain modules, and the HTTP front.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/uptrace/bun"

	"github.com/bmxtools/raceday/app/adapters"
	"github.com/bmxtools/raceday/app/api"
	"github.com/bmxtools/raceday/app/broadcast"
	"github.com/bmxtools/raceday/app/eventbus"
	"github.com/bmxtools/raceday/app/modules/access"
	accessdb "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/modules/activity"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/modules/club"
	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/modules/race"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/modules/transfer"
	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
	"github.com/bmxtools/raceday/app/modules/user"
	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
	"github.com/bmxtools/raceday/config"
	"github.com/bmxtools/raceday/db/bundb"
	"github.com/bmxtools/raceday/internal/observability"
	"github.com/bmxtools/raceday/pkg/jwt"
)

// App holds the wired application.
type App struct {
	Config        *config.Config
	Observability *observability.Observability

	db         *bun.DB
	eventBus   eventbus.EventBus
	router     *message.Router
	dispatcher *broadcast.Dispatcher

	UserModule     *user.Module
	AccessModule   *access.Module
	ClubModule     *club.Module
	RaceModule     *race.Module
	ActivityModule *activity.Module
	TransferModule *transfer.Module

	apiServer *api.Server
}

// NewApp wires every component. Nothing starts serving until Run.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:    "raceday",
		Environment:    cfg.Observability.Environment,
		LogLevel:       cfg.Observability.LogLevel,
		MetricsAddress: cfg.Observability.MetricsAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	db, err := bundb.Connect(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	eventBus, err := eventbus.New(ctx, cfg.NATS.URL, obs.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	if err := eventbus.InitializeStreams(ctx, eventBus); err != nil {
		return nil, fmt.Errorf("failed to initialize streams: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(obs.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create message router: %w", err)
	}
	metrics.NewPrometheusMetricsBuilder(obs.Registry, "raceday", "bus").
		AddPrometheusRouterMetrics(router)
	router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			Logger:          watermill.NewSlogLogger(obs.Logger),
		}.Middleware,
	)

	dispatcher := broadcast.NewDispatcher(eventBus, obs.Logger, cfg.Broadcast.BufferSize)

	userRepo := userdb.NewRepository(db)
	accessRepo := accessdb.NewRepository(db)
	clubRepo := clubdb.NewRepository(db)
	raceRepo := racedb.NewRepository(db)
	activityRepo := activitydb.NewRepository(db)
	transferRepo := transferdb.NewRepository(db)

	clubAdapter := adapters.NewClubAdapter(clubRepo)
	userAdapter := adapters.NewUserAdapter(userRepo)
	transferClubs := adapters.NewTransferClubGateway(clubRepo)
	granter := adapters.NewPermissionGrantAdapter(accessRepo)

	userModule, err := user.NewUserModule(obs, userRepo, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user module: %w", err)
	}

	accessModule, err := access.NewAccessModule(obs, accessRepo, clubAdapter, userAdapter, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize access module: %w", err)
	}

	activityModule, err := activity.NewActivityModule(
		obs, activityRepo, dispatcher, clubAdapter, eventBus, router, db,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize activity module: %w", err)
	}

	raceModule, err := race.NewRaceModule(
		obs, raceRepo, clubAdapter, activityModule.ActivityService, dispatcher,
		eventBus, router, db,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize race module: %w", err)
	}

	clubModule, err := club.NewClubModule(
		obs, clubRepo, raceModule.RaceService, userModule.UserService, granter, db,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize club module: %w", err)
	}

	transferModule, err := transfer.NewTransferModule(
		obs, transferRepo, transferClubs, userAdapter, accessRepo, dispatcher, db,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize transfer module: %w", err)
	}

	sessions := jwt.NewService(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.RefreshAfter)

	apiServer := api.NewServer(api.Deps{
		Logger:     obs.Logger,
		Config:     cfg,
		Races:      raceModule.RaceService,
		Clubs:      clubModule.ClubService,
		Users:      userModule.UserService,
		Activities: activityModule.ActivityService,
		Transfers:  transferModule.TransferService,
		Access:     accessModule.AccessService,
		Sessions:   sessions,
	})

	return &App{
		Config:         cfg,
		Observability:  obs,
		db:             db,
		eventBus:       eventBus,
		router:         router,
		dispatcher:     dispatcher,
		UserModule:     userModule,
		AccessModule:   accessModule,
		ClubModule:     clubModule,
		RaceModule:     raceModule,
		ActivityModule: activityModule,
		TransferModule: transferModule,
		apiServer:      apiServer,
	}, nil
}

// Run starts the message router, the modules, and the HTTP server, then
// blocks until ctx is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	logger := a.Observability.Logger
	errCh := make(chan error, 2)

	go func() {
		if err := a.router.Run(ctx); err != nil {
			errCh <- fmt.Errorf("message router stopped: %w", err)
		}
	}()

	var wg sync.WaitGroup
	for _, m := range []interface {
		Run(ctx context.Context, wg *sync.WaitGroup)
	}{
		a.UserModule, a.AccessModule, a.ClubModule,
		a.RaceModule, a.ActivityModule, a.TransferModule,
	} {
		wg.Add(1)
		go m.Run(ctx, &wg)
	}

	go func() {
		if err := a.apiServer.Start(); err != nil {
			errCh <- fmt.Errorf("http server stopped: %w", err)
		}
	}()

	logger.Info("Application started")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("Component failure", slog.String("error", err.Error()))
		return err
	}

	wg.Wait()
	return nil
}

// Close shuts everything down in reverse of startup order.
func (a *App) Close(ctx context.Context) {
	logger := a.Observability.Logger

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down HTTP server", slog.String("error", err.Error()))
	}

	for _, m := range []interface{ Close() error }{
		a.TransferModule, a.ActivityModule, a.RaceModule,
		a.ClubModule, a.AccessModule, a.UserModule,
	} {
		if err := m.Close(); err != nil {
			logger.Error("Failed to close module", slog.String("error", err.Error()))
		}
	}

	if err := a.router.Close(); err != nil {
		logger.Error("Failed to close message router", slog.String("error", err.Error()))
	}

	a.dispatcher.Close()

	if err := a.eventBus.Close(); err != nil {
		logger.Error("Failed to close event bus", slog.String("error", err.Error()))
	}
	if err := a.db.Close(); err != nil {
		logger.Error("Failed to close database", slog.String("error", err.Error()))
	}
	if err := a.Observability.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down observability", slog.String("error", err.Error()))
	}
}
