package race

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	"github.com/bmxtools/raceday/app/eventbus"
	raceservice "github.com/bmxtools/raceday/app/modules/race/application"
	racedb "github.com/bmxtools/raceday/app/modules/race/infrastructure/repositories"
	racerouter "github.com/bmxtools/raceday/app/modules/race/infrastructure/router"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the race module.
type Module struct {
	RaceService raceservice.Service
	RaceRouter  *racerouter.RaceRouter

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewRaceModule wires the race module onto the shared router and event bus.
func NewRaceModule(
	obs *observability.Observability,
	repo racedb.Repository,
	clubs raceservice.ClubDirectory,
	activity raceservice.ActivityRecorder,
	notifier raceservice.Notifier,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
) (*Module, error) {
	service := raceservice.NewRaceService(
		repo, clubs, activity, notifier,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	raceRouter := racerouter.NewRaceRouter(obs.Logger, router, eventBus, eventBus)
	if err := raceRouter.Configure(service, handlerwrapper.Deps{
		Logger:  obs.Logger,
		Metrics: obs.Metrics,
		Tracer:  obs.Tracer,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure race router: %w", err)
	}

	return &Module{
		RaceService: service,
		RaceRouter:  raceRouter,
		logger:      obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting race module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Race module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
