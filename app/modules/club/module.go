package club

import (
	"context"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"

	clubservice "github.com/bmxtools/raceday/app/modules/club/application"
	clubdb "github.com/bmxtools/raceday/app/modules/club/infrastructure/repositories"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the club module. It has no bus handlers; club management
// is driven from the HTTP layer.
type Module struct {
	ClubService clubservice.Service

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewClubModule wires the club service.
func NewClubModule(
	obs *observability.Observability,
	repo clubdb.Repository,
	races clubservice.RaceDirectory,
	users clubservice.UserProvisioner,
	granter clubservice.PermissionGranter,
	db *bun.DB,
) (*Module, error) {
	service := clubservice.NewClubService(
		repo, races, users, granter,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	return &Module{
		ClubService: service,
		logger:      obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting club module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Club module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
