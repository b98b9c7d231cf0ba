package plan

import (
	"context"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines installment plan persistence operations
type Repository interface {
	Create(ctx context.Context, p *InstallmentPlan) error
	GetByID(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)

	// LockForUpdate acquires a pessimistic lock for lifecycle transitions
	LockForUpdate(ctx context.Context, id uuid.UUID) (*InstallmentPlan, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.PlanStatus, updatedAt time.Time) error
	WithTx(tx pgx.Tx) Repository
}

// ErrPlanNotFound indicates missing installment plan
type ErrPlanNotFound struct {
	PlanID uuid.UUID
}

func (e ErrPlanNotFound) Error() string {
	return "installment plan not found: " + e.PlanID.String()
}

// Is matches shared.ErrNotFound, and any ErrPlanNotFound when the target id is nil
func (e ErrPlanNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrPlanNotFound)
	if !ok {
		return false
	}
	return t.PlanID == uuid.Nil || t.PlanID == e.PlanID
}
