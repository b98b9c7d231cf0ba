package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LifecycleServiceImpl struct {
	db           persistence.TxRunner
	planRepo     plan.Repository
	ledgerRepo   ledger.Repository
	materializer Materializer
	engine       ReconciliationEngine
	clock        shared.Clock
	logger       *slog.Logger
}

func NewLifecycleService(
	db persistence.TxRunner,
	planRepo plan.Repository,
	ledgerRepo ledger.Repository,
	materializer Materializer,
	engine ReconciliationEngine,
	clock shared.Clock,
	logger *slog.Logger,
) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{
		db:           db,
		planRepo:     planRepo,
		ledgerRepo:   ledgerRepo,
		materializer: materializer,
		engine:       engine,
		clock:        clock,
		logger:       logger,
	}
}

var (
	_ LifecycleService  = (*LifecycleServiceImpl)(nil)
	_ MutationProcessor = (*LifecycleServiceImpl)(nil)
)

func (s *LifecycleServiceImpl) loggerFor(ctx context.Context) *slog.Logger {
	if id := shared.CorrelationID(ctx); id != "" {
		return s.logger.With("correlation_id", id)
	}
	return s.logger
}

// MaterializePlan validates params, then writes the plan, its entries and the
// card reservation in one transaction
func (s *LifecycleServiceImpl) MaterializePlan(ctx context.Context, params plan.NewPlanParams) (*MaterializedPlan, error) {
	logger := s.loggerFor(ctx)

	p, err := plan.NewPlan(params, s.clock.Now())
	if err != nil {
		logger.Warn("Invalid installment plan", "error", err)
		return nil, err
	}

	var ids []uuid.UUID
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		ids, txErr = s.materializer.Materialize(ctx, tx, p)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return &MaterializedPlan{Plan: p, EntryIDs: ids}, nil
}

func (s *LifecycleServiceImpl) GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	p, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	entries, err := s.ledgerRepo.ListByPlan(ctx, planID)
	if err != nil {
		return nil, nil, err
	}
	return p, entries, nil
}

// CancelPlan removes the unpaid installments. Paid entries and their effect on
// the balance are kept.
func (s *LifecycleServiceImpl) CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	logger := s.loggerFor(ctx).With("plan_id", planID.String())

	var result *plan.InstallmentPlan
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		planRepoTx := s.planRepo.WithTx(tx)

		p, err := planRepoTx.LockForUpdate(ctx, planID)
		if err != nil {
			return err
		}
		result = p

		now := s.clock.Now()
		if !p.Cancel(now) {
			logger.Info("Plan already closed, cancel ignored", "status", string(p.Status))
			return nil
		}

		deleted, err := s.ledgerRepo.WithTx(tx).DeleteByPlanAndStatus(ctx, planID, shared.EntryStatusPending)
		if err != nil {
			return err
		}
		if err := planRepoTx.UpdateStatus(ctx, planID, p.Status, now); err != nil {
			return err
		}
		if _, err := s.engine.Refresh(ctx, tx, p.Source, reconciliation.TriggerCancel); err != nil {
			return err
		}

		logger.Info("Plan cancelled", "deleted_pending_entries", deleted)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkAllPaid settles every Pending installment at once and completes the plan
func (s *LifecycleServiceImpl) MarkAllPaid(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	logger := s.loggerFor(ctx).With("plan_id", planID.String())

	var result *plan.InstallmentPlan
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		planRepoTx := s.planRepo.WithTx(tx)

		p, err := planRepoTx.LockForUpdate(ctx, planID)
		if err != nil {
			return err
		}
		result = p

		if p.Status.IsTerminal() {
			logger.Info("Plan already closed, mark-all-paid ignored", "status", string(p.Status))
			return nil
		}

		now := s.clock.Now()
		paid, err := s.ledgerRepo.WithTx(tx).UpdateStatusByPlan(ctx, planID, shared.EntryStatusPending, shared.EntryStatusPaid, now)
		if err != nil {
			return err
		}
		p.Complete(now)
		if err := planRepoTx.UpdateStatus(ctx, planID, p.Status, now); err != nil {
			return err
		}
		if _, err := s.engine.Refresh(ctx, tx, p.Source, reconciliation.TriggerMarkAllPaid); err != nil {
			return err
		}

		logger.Info("Plan paid off", "entries_paid", paid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetEntryStatus moves one entry between Pending and Paid. Entries of a
// cancelled or completed plan cannot change. Paying the last Pending
// installment completes its plan.
func (s *LifecycleServiceImpl) SetEntryStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown entry status %q", shared.ErrInvalidArgument, status)
	}
	logger := s.loggerFor(ctx).With("entry_id", entryID.String())

	var result *ledger.Entry
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)
		planRepoTx := s.planRepo.WithTx(tx)

		e, err := ledgerRepoTx.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		result = e
		if e.Status == status {
			return nil
		}

		var p *plan.InstallmentPlan
		if e.PlanID != nil {
			p, err = planRepoTx.LockForUpdate(ctx, *e.PlanID)
			if err != nil {
				return err
			}
			if p.Status.IsTerminal() {
				return fmt.Errorf("%w: plan %s is %s", shared.ErrInvalidArgument, p.ID, p.Status)
			}
		}

		now := s.clock.Now()
		if err := ledgerRepoTx.UpdateStatus(ctx, entryID, status, now); err != nil {
			return err
		}
		e.Status = status
		e.UpdatedAt = now

		if p != nil && status == shared.EntryStatusPaid {
			pending, err := ledgerRepoTx.Count(ctx, ledger.Filter{PlanID: &p.ID}.WithStatus(shared.EntryStatusPending))
			if err != nil {
				return err
			}
			if pending == 0 && p.Complete(now) {
				if err := planRepoTx.UpdateStatus(ctx, p.ID, p.Status, now); err != nil {
					return err
				}
				logger.Info("Last installment paid, plan completed", "plan_id", p.ID.String())
			}
		}

		_, err = s.engine.Refresh(ctx, tx, e.Source, reconciliation.TriggerEntryStatus)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ImportEntries appends standalone entries produced outside the core. Entries
// whose idempotency key is already in the ledger, or repeated in the batch,
// are skipped. Every touched funding source is refreshed once.
func (s *LifecycleServiceImpl) ImportEntries(ctx context.Context, entries []*ledger.Entry) (*ImportResult, error) {
	logger := s.loggerFor(ctx)
	now := s.clock.Now()

	for i, e := range entries {
		if e.PlanID != nil || e.InstallmentIndex != nil {
			return nil, fmt.Errorf("%w: imported entry %d cannot belong to an installment plan", shared.ErrInvalidArgument, i)
		}
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		e.Amount = shared.RoundCurrency(e.Amount)
		e.OccursOn = shared.DateOf(e.OccursOn)
		e.DueOn = shared.DateOf(e.DueOn)
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("imported entry %d: %w", i, err)
		}
	}

	result := &ImportResult{Inserted: []uuid.UUID{}, Skipped: []string{}}
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		seen := make(map[string]bool)
		var sources []shared.FundingSource
		touched := make(map[shared.FundingSource]bool)
		toInsert := make([]*ledger.Entry, 0, len(entries))

		for _, e := range entries {
			if key := e.IdempotencyKey; key != "" {
				if seen[key] {
					result.Skipped = append(result.Skipped, key)
					continue
				}
				seen[key] = true

				_, err := ledgerRepoTx.GetByIdempotencyKey(ctx, key)
				if err == nil {
					result.Skipped = append(result.Skipped, key)
					continue
				}
				if !errors.Is(err, ledger.ErrEntryNotFound{}) {
					return err
				}
			}
			toInsert = append(toInsert, e)
			if !touched[e.Source] {
				touched[e.Source] = true
				sources = append(sources, e.Source)
			}
		}

		if err := ledgerRepoTx.BulkInsert(ctx, toInsert); err != nil {
			return err
		}
		for _, e := range toInsert {
			result.Inserted = append(result.Inserted, e.ID)
		}

		for _, src := range sources {
			snapshot, err := s.engine.Refresh(ctx, tx, src, reconciliation.TriggerImport)
			if err != nil {
				return err
			}
			result.Snapshots = append(result.Snapshots, snapshot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Ledger entries imported", "inserted", len(result.Inserted), "skipped", len(result.Skipped))
	return result, nil
}

// OnLedgerMutated is the hook every entry-level mutation outside the core calls
func (s *LifecycleServiceImpl) OnLedgerMutated(ctx context.Context, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if trigger == "" {
		trigger = reconciliation.TriggerMutation
	}

	var snapshot *reconciliation.Snapshot
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		snapshot, txErr = s.engine.Refresh(ctx, tx, src, trigger)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *LifecycleServiceImpl) RecalculateAccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		balance, txErr = s.engine.RecalculateAccountBalance(ctx, tx, accountID)
		return txErr
	})
	return balance, err
}

func (s *LifecycleServiceImpl) RecalculateCardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error) {
	var used decimal.Decimal
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		var txErr error
		used, txErr = s.engine.RecalculateCardUsedLimit(ctx, tx, cardID)
		return txErr
	})
	return used, err
}

// ProcessMutation handles one ledger mutation event. Events for unknown or
// malformed funding sources are acknowledged, since retrying cannot fix them.
func (s *LifecycleServiceImpl) ProcessMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	ctx = shared.WithCorrelationID(ctx, event.CorrelationID)
	logger := s.loggerFor(ctx).With("event_id", event.EventID.String())

	logger.Info("Processing ledger mutation", "funding_source", event.Source.String(), "reason", event.Reason)

	_, err := s.OnLedgerMutated(ctx, event.Source, reconciliation.TriggerMutation)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, shared.ErrNotFound), errors.Is(err, shared.ErrInvalidArgument):
		logger.Warn("Dropping ledger mutation", "funding_source", event.Source.String(), "error", err)
		return nil
	default:
		logger.Error("Failed to process ledger mutation", "error", err)
		return err
	}
}
