package service

import (
	"context"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanService defines the interface for installment plan operations
type PlanService interface {
	// CreatePlan materializes a plan and returns it with its installments
	CreatePlan(ctx context.Context, params plan.NewPlanParams) (*plan.InstallmentPlan, []*ledger.Entry, error)

	// GetPlan retrieves a plan and its installments
	// Returns ErrPlanNotFound if the plan doesn't exist
	GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error)

	CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error)
	PayAll(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error)
}

// EntryService defines the interface for entry level operations
type EntryService interface {
	// SetStatus moves an entry between PENDING and PAID
	// Returns ErrEntryNotFound if the entry doesn't exist
	SetStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error)

	// Import appends standalone entries, skipping idempotency keys already seen
	Import(ctx context.Context, entries []*ledger.Entry) (*core.ImportResult, error)
}

// ReconciliationService defines the interface for balance and used limit queries
type ReconciliationService interface {
	AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	CardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error)

	// RequestReconciliation queues an asynchronous refresh of a funding source
	RequestReconciliation(ctx context.Context, src shared.FundingSource, reason string) (*shared.LedgerMutationEvent, error)

	// History returns a page of journal snapshots, newest first, and the total count
	History(ctx context.Context, src shared.FundingSource, page, perPage int) ([]*reconciliation.Snapshot, int64, error)
}
