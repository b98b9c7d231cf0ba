package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ReconciliationEngineImpl is the only writer of accounts.cached_balance and,
// apart from the materializer's reservation, of cards.used_limit.
type ReconciliationEngineImpl struct {
	accountRepo account.Repository
	cardRepo    card.Repository
	ledgerRepo  ledger.Repository
	audit       service.AuditRecorder
	clock       shared.Clock
	logger      *slog.Logger
}

func NewReconciliationEngine(
	accountRepo account.Repository,
	cardRepo card.Repository,
	ledgerRepo ledger.Repository,
	audit service.AuditRecorder,
	clock shared.Clock,
	logger *slog.Logger,
) service.ReconciliationEngine {
	return &ReconciliationEngineImpl{
		accountRepo: accountRepo,
		cardRepo:    cardRepo,
		ledgerRepo:  ledgerRepo,
		audit:       audit,
		clock:       clock,
		logger:      logger,
	}
}

// accountBalance = initial + Σ paid income − Σ paid expense. Pending entries never count.
func (e *ReconciliationEngineImpl) accountBalance(ctx context.Context, ledgerRepo ledger.Repository, a *account.Account) (decimal.Decimal, error) {
	paid := ledger.ForSource(shared.AccountSource(a.ID)).WithStatus(shared.EntryStatusPaid)

	income, err := ledgerRepo.Sum(ctx, paid.WithKind(shared.EntryKindIncome))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum income of account %s: %w", a.ID, err)
	}
	expense, err := ledgerRepo.Sum(ctx, paid.WithKind(shared.EntryKindExpense))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses of account %s: %w", a.ID, err)
	}

	return shared.RoundCurrency(a.InitialBalance.Add(income).Sub(expense)), nil
}

// cardUsedLimit = Σ expense over every entry of the card regardless of status
func (e *ReconciliationEngineImpl) cardUsedLimit(ctx context.Context, ledgerRepo ledger.Repository, cardID uuid.UUID) (decimal.Decimal, error) {
	used, err := ledgerRepo.Sum(ctx, ledger.ForSource(shared.CardSource(cardID)).WithKind(shared.EntryKindExpense))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum expenses of card %s: %w", cardID, err)
	}
	return shared.RoundCurrency(used), nil
}

// RecalculateAccountBalance derives the balance without touching the cache
func (e *ReconciliationEngineImpl) RecalculateAccountBalance(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (decimal.Decimal, error) {
	a, err := e.accountRepo.WithTx(tx).GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return e.accountBalance(ctx, e.ledgerRepo.WithTx(tx), a)
}

// RecalculateCardUsedLimit derives the used limit without touching the cache
func (e *ReconciliationEngineImpl) RecalculateCardUsedLimit(ctx context.Context, tx pgx.Tx, cardID uuid.UUID) (decimal.Decimal, error) {
	if _, err := e.cardRepo.WithTx(tx).GetByID(ctx, cardID); err != nil {
		return decimal.Zero, err
	}
	return e.cardUsedLimit(ctx, e.ledgerRepo.WithTx(tx), cardID)
}

// Refresh recomputes the funding source under a row lock, stores the result
// in the cache column and queues a snapshot of the change. Sweep refreshes
// that find no drift write nothing.
func (e *ReconciliationEngineImpl) Refresh(ctx context.Context, tx pgx.Tx, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	logger := e.logger
	correlationID := shared.CorrelationID(ctx)
	if correlationID != "" {
		logger = e.logger.With("correlation_id", correlationID)
	}

	var (
		snapshot *reconciliation.Snapshot
		err      error
	)
	switch src.Kind {
	case shared.SourceKindAccount:
		snapshot, err = e.refreshAccount(ctx, tx, src.ID, trigger, correlationID)
	case shared.SourceKindCard:
		snapshot, err = e.refreshCard(ctx, tx, src.ID, trigger, correlationID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			logger.Warn("Funding source not found for refresh", "funding_source", src.String())
		} else {
			logger.Error("Failed to refresh funding source", "funding_source", src.String(), "error", err)
		}
		return nil, err
	}

	if snapshot.HasDrift() {
		logger.Info("Cached value refreshed",
			"funding_source", src.String(),
			"previous", snapshot.Previous.StringFixed(2),
			"recomputed", snapshot.Recomputed.StringFixed(2),
			"drift", snapshot.Drift.StringFixed(2),
			"trigger", trigger,
		)
	} else {
		logger.Debug("Cached value already current", "funding_source", src.String(), "trigger", trigger)
	}

	return snapshot, nil
}

func (e *ReconciliationEngineImpl) refreshAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, trigger, correlationID string) (*reconciliation.Snapshot, error) {
	accountRepoTx := e.accountRepo.WithTx(tx)

	locked, err := accountRepoTx.LockForUpdate(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := e.accountBalance(ctx, e.ledgerRepo.WithTx(tx), locked)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	previous := locked.RefreshCache(balance, now)
	snapshot := reconciliation.NewSnapshot(shared.AccountSource(accountID), previous, balance, trigger, correlationID, now)
	if skipUnchanged(snapshot) {
		return snapshot, nil
	}

	if err := accountRepoTx.UpdateCachedBalance(ctx, accountID, balance, now); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (e *ReconciliationEngineImpl) refreshCard(ctx context.Context, tx pgx.Tx, cardID uuid.UUID, trigger, correlationID string) (*reconciliation.Snapshot, error) {
	cardRepoTx := e.cardRepo.WithTx(tx)

	locked, err := cardRepoTx.LockForUpdate(ctx, cardID)
	if err != nil {
		return nil, err
	}

	used, err := e.cardUsedLimit(ctx, e.ledgerRepo.WithTx(tx), cardID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	previous := locked.RefreshCache(used, now)
	snapshot := reconciliation.NewSnapshot(shared.CardSource(cardID), previous, used, trigger, correlationID, now)
	if skipUnchanged(snapshot) {
		return snapshot, nil
	}

	if err := cardRepoTx.UpdateUsedLimit(ctx, cardID, used, now); err != nil {
		return nil, err
	}
	if err := e.audit.Record(ctx, tx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func skipUnchanged(s *reconciliation.Snapshot) bool {
	return s.Trigger == reconciliation.TriggerSweep && !s.HasDrift()
}
