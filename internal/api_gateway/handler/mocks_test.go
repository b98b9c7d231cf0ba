package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/fincontrol-ledger/internal/api_gateway/middleware"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// envelope is the decoded form of Response used in assertions
type envelope[T any] struct {
	Data          T          `json:"data"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID())
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.CorrelationIDHeader, "test-corr")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var out envelope[T]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

type MockPlanService struct {
	mock.Mock
}

func (m *MockPlanService) CreatePlan(ctx context.Context, params plan.NewPlanParams) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Get(1).([]*ledger.Entry), args.Error(2)
}

func (m *MockPlanService) GetPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, []*ledger.Entry, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Get(1).([]*ledger.Entry), args.Error(2)
}

func (m *MockPlanService) CancelPlan(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Error(1)
}

func (m *MockPlanService) PayAll(ctx context.Context, planID uuid.UUID) (*plan.InstallmentPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.InstallmentPlan), args.Error(1)
}

type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) SetStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryService) Import(ctx context.Context, entries []*ledger.Entry) (*core.ImportResult, error) {
	args := m.Called(ctx, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.ImportResult), args.Error(1)
}

type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockReconciliationService) CardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, cardID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockReconciliationService) RequestReconciliation(ctx context.Context, src shared.FundingSource, reason string) (*shared.LedgerMutationEvent, error) {
	args := m.Called(ctx, src, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.LedgerMutationEvent), args.Error(1)
}

func (m *MockReconciliationService) History(ctx context.Context, src shared.FundingSource, page, perPage int) ([]*reconciliation.Snapshot, int64, error) {
	args := m.Called(ctx, src, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*reconciliation.Snapshot), args.Get(1).(int64), args.Error(2)
}
