package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const planColumns = `id, owner_id, tenant_id, account_id, card_id, category_id, description, total_amount,
	installment_count, interest_rate_percent, total_payable, first_due_date, status, created_at, updated_at`

// PlanRepository implements the plan.Repository interface for PostgreSQL
type PlanRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPlanRepository creates a new PostgreSQL installment plan repository
func NewPlanRepository(logger *slog.Logger, db *persistence.PostgresDB) plan.Repository {
	return &PlanRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *PlanRepository) WithTx(tx pgx.Tx) plan.Repository {
	return &PlanRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new installment plan
func (r *PlanRepository) Create(ctx context.Context, p *plan.InstallmentPlan) error {
	query := `
		INSERT INTO installment_plans (` + planColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.OwnerID,
		p.TenantID,
		p.Source.AccountID(),
		p.Source.CardID(),
		p.CategoryID,
		p.Description,
		p.TotalAmount,
		p.InstallmentCount,
		p.InterestRatePercent,
		p.TotalPayable,
		p.FirstDueDate,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create installment plan", "plan_id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create installment plan: %w", err)
	}

	return nil
}

// GetByID retrieves an installment plan by its ID
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*plan.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE id = $1`

	p, err := scanPlan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrPlanNotFound{PlanID: id}
		}
		r.logger.Error("Failed to get installment plan", "plan_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get installment plan: %w", err)
	}

	return p, nil
}

// LockForUpdate obtains a pessimistic lock on the plan row for lifecycle transitions
func (r *PlanRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*plan.InstallmentPlan, error) {
	query := `SELECT ` + planColumns + ` FROM installment_plans WHERE id = $1 FOR UPDATE`

	p, err := scanPlan(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrPlanNotFound{PlanID: id}
		}
		r.logger.Error("Failed to lock installment plan", "plan_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock installment plan: %w", err)
	}

	return p, nil
}

// UpdateStatus moves the plan to a new lifecycle status
func (r *PlanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.PlanStatus, updatedAt time.Time) error {
	query := `
		UPDATE installment_plans
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to update installment plan status",
			"plan_id", id.String(),
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update installment plan status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return plan.ErrPlanNotFound{PlanID: id}
	}

	return nil
}

func scanPlan(row pgx.Row) (*plan.InstallmentPlan, error) {
	var (
		p         plan.InstallmentPlan
		accountID *uuid.UUID
		cardID    *uuid.UUID
	)
	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.TenantID,
		&accountID,
		&cardID,
		&p.CategoryID,
		&p.Description,
		&p.TotalAmount,
		&p.InstallmentCount,
		&p.InterestRatePercent,
		&p.TotalPayable,
		&p.FirstDueDate,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Source, err = shared.NewFundingSource(accountID, cardID)
	if err != nil {
		return nil, fmt.Errorf("corrupt funding source on plan %s: %w", p.ID, err)
	}
	return &p, nil
}
