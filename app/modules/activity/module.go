package activity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"

	"github.com/bmxtools/raceday/app/eventbus"
	activityservice "github.com/bmxtools/raceday/app/modules/activity/application"
	activityhandlers "github.com/bmxtools/raceday/app/modules/activity/infrastructure/handlers"
	activitydb "github.com/bmxtools/raceday/app/modules/activity/infrastructure/repositories"
	activityrouter "github.com/bmxtools/raceday/app/modules/activity/infrastructure/router"
	"github.com/bmxtools/raceday/app/shared/handlerwrapper"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the activity module.
type Module struct {
	ActivityService activityservice.Service
	ActivityRouter  *activityrouter.ActivityRouter

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewActivityModule wires the activity module onto the shared router.
func NewActivityModule(
	obs *observability.Observability,
	repo activitydb.Repository,
	notifier activityservice.Notifier,
	clubs activityhandlers.ClubResolver,
	eventBus eventbus.EventBus,
	router *message.Router,
	db *bun.DB,
) (*Module, error) {
	service := activityservice.NewActivityService(
		repo, notifier,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	activityRouter := activityrouter.NewActivityRouter(obs.Logger, router, eventBus)
	if err := activityRouter.Configure(service, clubs, handlerwrapper.Deps{
		Logger:  obs.Logger,
		Metrics: obs.Metrics,
		Tracer:  obs.Tracer,
	}); err != nil {
		return nil, fmt.Errorf("failed to configure activity router: %w", err)
	}

	return &Module{
		ActivityService: service,
		ActivityRouter:  activityRouter,
		logger:          obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting activity module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Activity module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
