package access

import (
	"context"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"

	accessservice "github.com/bmxtools/raceday/app/modules/access/application"
	accessdb "github.com/bmxtools/raceday/app/modules/access/infrastructure/repositories"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the access module.
type Module struct {
	AccessService accessservice.Service

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewAccessModule wires the access service.
func NewAccessModule(
	obs *observability.Observability,
	repo accessdb.Repository,
	clubs accessservice.ClubDirectory,
	users accessservice.UserDirectory,
	db *bun.DB,
) (*Module, error) {
	service := accessservice.NewAccessService(
		repo, clubs, users,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	return &Module{
		AccessService: service,
		logger:        obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting access module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Access module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
