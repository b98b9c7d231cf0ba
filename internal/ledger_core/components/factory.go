package components

import (
	"log/slog"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/fincontrol-ledger/internal/platform/persistence"
)

// Repositories groups the stores the core reads and writes
type Repositories struct {
	Plans    plan.Repository
	Ledger   ledger.Repository
	Accounts account.Repository
	Cards    card.Repository
	Outbox   outbox.Repository
}

// CreateLifecycleService wires the calculator, materializer, reconciliation
// engine and audit recorder behind the lifecycle service.
func CreateLifecycleService(
	db persistence.TxRunner,
	repos Repositories,
	clock shared.Clock,
	logger *slog.Logger,
) *service.LifecycleServiceImpl {
	audit := NewAuditRecorder(repos.Outbox, logger.With("component", "audit_recorder"))
	engine := NewReconciliationEngine(repos.Accounts, repos.Cards, repos.Ledger, audit, clock, logger.With("component", "reconciliation_engine"))
	materializer := NewMaterializer(repos.Plans, repos.Ledger, repos.Accounts, repos.Cards, audit, clock, logger.With("component", "materializer"))

	return service.NewLifecycleService(db, repos.Plans, repos.Ledger, materializer, engine, clock, logger)
}

// CreateMutationProcessor puts the lifecycle service behind the worker pool.
func CreateMutationProcessor(
	lifecycle service.MutationProcessor,
	logger *slog.Logger,
	cfg *config.Config,
) service.MutationProcessor {
	workerPoolService, err := service.NewWorkerPoolMutationProcessor(
		lifecycle,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool, falling back to direct processing", "error", err)
		return lifecycle
	}

	logger.Info("Created worker pool mutation processor", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
