package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) MaterializePlan(ctx context.Context, params plan.NewPlanParams) (*core.MaterializedPlan, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.MaterializedPlan), args.Error(1)
}

func (m *MockLifecycleService) GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Get(1).([]*ledger.Entry), args.Error(2)
}

func (m *MockLifecycleService) CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Error(1)
}

func (m *MockLifecycleService) MarkAllPaid(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Error(1)
}

func (m *MockLifecycleService) SetEntryStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLifecycleService) ImportEntries(ctx context.Context, entries []*ledger.Entry) (*core.ImportResult, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.ImportResult), args.Error(1)
}

func (m *MockLifecycleService) OnLedgerMutated(ctx context.Context, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error) {
	args := m.Called(ctx, src, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Snapshot), args.Error(1)
}

func (m *MockLifecycleService) RecalculateAccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLifecycleService) RecalculateCardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, cardID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockMutationPublisher struct {
	mock.Mock
}

func (m *MockMutationPublisher) PublishMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockMutationPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) Append(ctx context.Context, snapshot *reconciliation.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*reconciliation.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.Snapshot), args.Error(1)
}

func (m *MockJournalRepository) ListBySource(ctx context.Context, src shared.FundingSource, limit, offset int) ([]*reconciliation.Snapshot, error) {
	args := m.Called(ctx, src, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reconciliation.Snapshot), args.Error(1)
}

func (m *MockJournalRepository) CountBySource(ctx context.Context, src shared.FundingSource) (int64, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(int64), args.Error(1)
}
