package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PlanRepository struct {
	store *Store
}

var _ plan.Repository = (*PlanRepository)(nil)

func (r *PlanRepository) WithTx(pgx.Tx) plan.Repository { return r }

func (r *PlanRepository) Create(ctx context.Context, p *plan.InstallmentPlan) error {
	if err := r.store.fault("plan.Create"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.plans[p.ID]; ok {
		return fmt.Errorf("failed to create plan: plan %s already exists", p.ID)
	}
	r.store.data.plans[p.ID] = *p
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*plan.InstallmentPlan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.data.plans[id]
	if !ok {
		return nil, plan.ErrPlanNotFound{PlanID: id}
	}
	return &p, nil
}

// LockForUpdate is GetByID; ExecuteTx already serializes writers
func (r *PlanRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*plan.InstallmentPlan, error) {
	return r.GetByID(ctx, id)
}

func (r *PlanRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.PlanStatus, updatedAt time.Time) error {
	if err := r.store.fault("plan.UpdateStatus"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.data.plans[id]
	if !ok {
		return plan.ErrPlanNotFound{PlanID: id}
	}
	p.Status = status
	p.UpdatedAt = updatedAt
	r.store.data.plans[id] = p
	return nil
}
