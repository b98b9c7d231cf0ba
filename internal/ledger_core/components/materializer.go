package components

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MaterializerImpl turns a plan into N dated Pending expense entries
type MaterializerImpl struct {
	planRepo    plan.Repository
	ledgerRepo  ledger.Repository
	accountRepo account.Repository
	cardRepo    card.Repository
	audit       service.AuditRecorder
	clock       shared.Clock
	logger      *slog.Logger
}

func NewMaterializer(
	planRepo plan.Repository,
	ledgerRepo ledger.Repository,
	accountRepo account.Repository,
	cardRepo card.Repository,
	audit service.AuditRecorder,
	clock shared.Clock,
	logger *slog.Logger,
) service.Materializer {
	return &MaterializerImpl{
		planRepo:    planRepo,
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
		cardRepo:    cardRepo,
		audit:       audit,
		clock:       clock,
		logger:      logger,
	}
}

// InstallmentKey is the idempotency key of the entry for the 1-based installment index
func InstallmentKey(planID uuid.UUID, index int) string {
	return fmt.Sprintf("%s:%d", planID, index)
}

// Materialize persists p and its installments inside tx and returns the entry
// ids in installment order. p.TotalPayable is filled in. The last installment
// is derived from what was persisted for entries 1..N-1, so the plan always
// sums to TotalPayable. Card plans reserve TotalPayable on the card.
func (m *MaterializerImpl) Materialize(ctx context.Context, tx pgx.Tx, p *plan.InstallmentPlan) ([]uuid.UUID, error) {
	logger := m.logger.With("plan_id", p.ID.String())
	correlationID := shared.CorrelationID(ctx)
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}

	schedule, err := BuildSchedule(p.TotalAmount, p.InstallmentCount, p.InterestRatePercent)
	if err != nil {
		logger.Warn("Rejected installment plan", "error", err)
		return nil, err
	}
	p.TotalPayable = schedule.TotalPayable

	planRepoTx := m.planRepo.WithTx(tx)
	ledgerRepoTx := m.ledgerRepo.WithTx(tx)
	cardRepoTx := m.cardRepo.WithTx(tx)

	// Resolve the funding source before the first write
	var reservedCard *card.Card
	switch p.Source.Kind {
	case shared.SourceKindCard:
		reservedCard, err = cardRepoTx.LockForUpdate(ctx, p.Source.ID)
	case shared.SourceKindAccount:
		_, err = m.accountRepo.WithTx(tx).GetByID(ctx, p.Source.ID)
	default:
		err = p.Source.Validate()
	}
	if err != nil {
		logger.Warn("Funding source unavailable for plan", "funding_source", p.Source.String(), "error", err)
		return nil, err
	}

	if err := planRepoTx.Create(ctx, p); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	ids := make([]uuid.UUID, 0, schedule.Count)
	for i := 1; i < schedule.Count; i++ {
		entry := m.installment(p, i, schedule.PerInstallment, now)
		if err := ledgerRepoTx.Insert(ctx, entry); err != nil {
			logger.Error("Failed to insert installment", "installment_index", i, "error", err)
			return nil, fmt.Errorf("failed to insert installment %d of plan %s: %w", i, p.ID, err)
		}
		ids = append(ids, entry.ID)
	}

	planFilter := ledger.Filter{PlanID: &p.ID}
	persisted, err := ledgerRepoTx.Sum(ctx, planFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to sum installments of plan %s: %w", p.ID, err)
	}

	last := m.installment(p, schedule.Count, schedule.LastInstallment(persisted), now)
	if err := ledgerRepoTx.Insert(ctx, last); err != nil {
		logger.Error("Failed to insert last installment", "installment_index", schedule.Count, "error", err)
		return nil, fmt.Errorf("failed to insert installment %d of plan %s: %w", schedule.Count, p.ID, err)
	}
	ids = append(ids, last.ID)

	total, err := ledgerRepoTx.Sum(ctx, planFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to sum installments of plan %s: %w", p.ID, err)
	}
	if !total.Equal(schedule.TotalPayable) {
		violation := shared.InvariantViolation{PlanID: p.ID, Expected: schedule.TotalPayable, Actual: total}
		logger.Error("Installment sum invariant violated", "error", violation)
		return nil, violation
	}

	if reservedCard != nil {
		if err := m.reserve(ctx, tx, reservedCard, schedule.TotalPayable, correlationID, now); err != nil {
			return nil, err
		}
	}

	logger.Info("Installment plan materialized",
		"funding_source", p.Source.String(),
		"installments", schedule.Count,
		"per_installment", schedule.PerInstallment.StringFixed(2),
		"last_installment", last.Amount.StringFixed(2),
		"total_payable", schedule.TotalPayable.StringFixed(2),
	)

	return ids, nil
}

// reserve consumes the plan total from the card limit up front
func (m *MaterializerImpl) reserve(ctx context.Context, tx pgx.Tx, c *card.Card, amount decimal.Decimal, correlationID string, now time.Time) error {
	if err := m.cardRepo.WithTx(tx).IncrementUsedLimit(ctx, c.ID, amount, now); err != nil {
		return fmt.Errorf("failed to reserve %s on card %s: %w", amount.StringFixed(2), c.ID, err)
	}

	snapshot := reconciliation.NewSnapshot(
		shared.CardSource(c.ID),
		c.UsedLimit,
		c.UsedLimit.Add(amount),
		reconciliation.TriggerMaterialize,
		correlationID,
		now,
	)
	return m.audit.Record(ctx, tx, snapshot)
}

func (m *MaterializerImpl) installment(p *plan.InstallmentPlan, index int, amount decimal.Decimal, now time.Time) *ledger.Entry {
	due := DueDate(p.FirstDueDate, index)
	planID := p.ID
	idx := index
	return &ledger.Entry{
		ID:               uuid.New(),
		OwnerID:          p.OwnerID,
		TenantID:         p.TenantID,
		Source:           p.Source,
		CategoryID:       p.CategoryID,
		Kind:             shared.EntryKindExpense,
		Description:      strings.TrimSpace(p.Description + " " + p.InstallmentLabel(index)),
		Amount:           amount,
		OccursOn:         due,
		DueOn:            due,
		Status:           shared.EntryStatusPending,
		PlanID:           &planID,
		InstallmentIndex: &idx,
		IdempotencyKey:   InstallmentKey(p.ID, index),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
