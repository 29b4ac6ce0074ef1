package transfer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/uptrace/bun"

	transferservice "github.com/bmxtools/raceday/app/modules/transfer/application"
	transferdb "github.com/bmxtools/raceday/app/modules/transfer/infrastructure/repositories"
	"github.com/bmxtools/raceday/internal/observability"
)

// Module represents the ownership-transfer module. Transfers are driven from
// the HTTP layer; the bus only carries the lifecycle events the service
// publishes.
type Module struct {
	TransferService transferservice.Service

	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewTransferModule wires the transfer service.
func NewTransferModule(
	obs *observability.Observability,
	repo transferdb.Repository,
	clubs transferservice.ClubGateway,
	users transferservice.UserGateway,
	access transferservice.SuperAdminChecker,
	notifier transferservice.Notifier,
	db *bun.DB,
) (*Module, error) {
	service := transferservice.NewTransferService(
		repo, clubs, users, access, notifier,
		obs.Logger, obs.Metrics, obs.Tracer, db,
	)

	return &Module{
		TransferService: service,
		logger:          obs.Logger,
	}, nil
}

// Run keeps the module alive until the context is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.Info("Starting transfer module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.Info("Transfer module stopped")
}

// Close cancels any in-flight work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
