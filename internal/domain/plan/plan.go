package plan

import (
	"fmt"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentPlan represents a purchase split into fixed monthly installments
type InstallmentPlan struct {
	ID                  uuid.UUID            `json:"id"`
	OwnerID             uuid.UUID            `json:"owner_id"`
	TenantID            uuid.UUID            `json:"tenant_id"`
	Source              shared.FundingSource `json:"funding_source"`
	CategoryID          *uuid.UUID           `json:"category_id,omitempty"`
	Description         string               `json:"description"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	InstallmentCount    int                  `json:"installment_count"`
	InterestRatePercent decimal.Decimal      `json:"interest_rate_percent"`
	TotalPayable        decimal.Decimal      `json:"total_payable"` // TotalAmount plus simple interest; set on materialization
	FirstDueDate        time.Time            `json:"first_due_date"`
	Status              shared.PlanStatus    `json:"status"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// NewPlanParams carries the caller-supplied fields of a plan
type NewPlanParams struct {
	OwnerID             uuid.UUID
	TenantID            uuid.UUID
	Source              shared.FundingSource
	CategoryID          *uuid.UUID
	Description         string
	TotalAmount         decimal.Decimal
	InstallmentCount    int
	InterestRatePercent decimal.Decimal
	FirstDueDate        time.Time
}

// NewPlan validates the parameters and returns an active plan with a fresh id
func NewPlan(params NewPlanParams, now time.Time) (*InstallmentPlan, error) {
	if err := params.Source.Validate(); err != nil {
		return nil, err
	}
	if !params.TotalAmount.IsPositive() {
		return nil, fmt.Errorf("%w: total amount must be positive", shared.ErrInvalidArgument)
	}
	if params.InstallmentCount < 1 {
		return nil, fmt.Errorf("%w: installment count must be at least 1", shared.ErrInvalidArgument)
	}
	if params.InterestRatePercent.IsNegative() {
		return nil, fmt.Errorf("%w: interest rate cannot be negative", shared.ErrInvalidArgument)
	}
	if params.FirstDueDate.IsZero() {
		return nil, fmt.Errorf("%w: first due date is required", shared.ErrInvalidArgument)
	}

	return &InstallmentPlan{
		ID:                  uuid.New(),
		OwnerID:             params.OwnerID,
		TenantID:            params.TenantID,
		Source:              params.Source,
		CategoryID:          params.CategoryID,
		Description:         params.Description,
		TotalAmount:         shared.RoundCurrency(params.TotalAmount),
		InstallmentCount:    params.InstallmentCount,
		InterestRatePercent: params.InterestRatePercent,
		FirstDueDate:        shared.DateOf(params.FirstDueDate),
		Status:              shared.PlanStatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Cancel marks the plan cancelled. It reports false when the plan was already
// in a terminal state and nothing changed.
func (p *InstallmentPlan) Cancel(now time.Time) bool {
	if p.Status.IsTerminal() {
		return false
	}
	p.Status = shared.PlanStatusCancelled
	p.UpdatedAt = now
	return true
}

// Complete marks the plan completed once every installment is paid
func (p *InstallmentPlan) Complete(now time.Time) bool {
	if p.Status.IsTerminal() {
		return false
	}
	p.Status = shared.PlanStatusCompleted
	p.UpdatedAt = now
	return true
}

// InstallmentLabel returns the "(i/N)" suffix used in entry descriptions
func (p *InstallmentPlan) InstallmentLabel(index int) string {
	return fmt.Sprintf("(%d/%d)", index, p.InstallmentCount)
}
