package user

import (
	"context"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"

	userservice "github.com/bmxtools/raceday/app/modules/user/application"
	userdb "github.com/bmxtools/raceday/app/modules/user/infrastructure/repositories"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the user module.
type Module struct {
	UserService userservice.Service

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewUserModule wires the user service.
func NewUserModule(
	obs *observability.Observability,
	repo userdb.Repository,
	db *bun.DB,
) (*Module, error) {
	service := userservice.NewUserService(
		repo,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	return &Module{
		UserService: service,
		logger:      obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting user module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("User module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
