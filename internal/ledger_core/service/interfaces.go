package service

import (
	"context"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LifecycleService drives installment plans and keeps the cached balance and
// used limit columns in step with the ledger. Every operation runs in one
// database transaction.
type LifecycleService interface {
	// MaterializePlan creates the plan and all of its installments atomically
	MaterializePlan(ctx context.Context, params plan.NewPlanParams) (*MaterializedPlan, error)

	// GetPlan returns the plan and its entries ordered by installment index
	GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error)

	// CancelPlan deletes the plan's Pending entries and keeps the Paid ones.
	// Cancelling a cancelled or completed plan is a no-op.
	CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error)

	// MarkAllPaid moves every Pending entry of the plan to Paid and completes the plan
	MarkAllPaid(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error)

	// SetEntryStatus moves a single entry between Pending and Paid
	SetEntryStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error)

	// ImportEntries appends externally produced entries, skipping known idempotency keys
	ImportEntries(ctx context.Context, entries []*ledger.Entry) (*ImportResult, error)

	// OnLedgerMutated refreshes the cached value of a funding source from the ledger
	OnLedgerMutated(ctx context.Context, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error)

	RecalculateAccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	RecalculateCardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error)
}

// MutationProcessor handles ledger mutation events coming from Kafka
type MutationProcessor interface {
	ProcessMutation(ctx context.Context, event *shared.LedgerMutationEvent) error
}

// Materializer writes a plan and its installments inside tx
type Materializer interface {
	Materialize(ctx context.Context, tx pgx.Tx, p *plan.InstallmentPlan) ([]uuid.UUID, error)
}

// ReconciliationEngine derives balances and used limits from the ledger
type ReconciliationEngine interface {
	RecalculateAccountBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (decimal.Decimal, error)
	RecalculateCardUsedLimit(ctx context.Context, tx pgx.Tx, cardID uuid.UUID) (decimal.Decimal, error)

	// Refresh locks the funding source, recomputes it and persists the cache
	Refresh(ctx context.Context, tx pgx.Tx, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error)
}

// AuditRecorder queues reconciliation snapshots for the journal publisher
type AuditRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, snapshot *reconciliation.Snapshot) error
}

// MaterializedPlan is the result of MaterializePlan
type MaterializedPlan struct {
	Plan     *plan.InstallmentPlan
	EntryIDs []uuid.UUID
}

// ImportResult reports what ImportEntries did
type ImportResult struct {
	Inserted  []uuid.UUID
	Skipped   []string // idempotency keys already present in the ledger
	Snapshots []*reconciliation.Snapshot
}
