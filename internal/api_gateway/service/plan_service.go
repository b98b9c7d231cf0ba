package service

import (
	"context"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
)

// PlanServiceImpl implements the PlanService interface
type PlanServiceImpl struct {
	lifecycle core.LifecycleService
	logger    *slog.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(logger *slog.Logger, lifecycle core.LifecycleService) PlanService {
	return &PlanServiceImpl{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

// CreatePlan materializes the plan, then reads it back so the response carries
// the installments as persisted
func (s *PlanServiceImpl) CreatePlan(ctx context.Context, params plan.NewPlanParams) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	materialized, err := s.lifecycle.MaterializePlan(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	p, entries, err := s.lifecycle.GetPlan(ctx, materialized.Plan.ID)
	if err != nil {
		s.logger.Error("Failed to read back materialized plan", "plan_id", materialized.Plan.ID, "error", err)
		return nil, nil, err
	}
	return p, entries, nil
}

func (s *PlanServiceImpl) GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	return s.lifecycle.GetPlan(ctx, planID)
}

func (s *PlanServiceImpl) CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	return s.lifecycle.CancelPlan(ctx, planID)
}

func (s *PlanServiceImpl) PayAll(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	return s.lifecycle.MarkAllPaid(ctx, planID)
}
