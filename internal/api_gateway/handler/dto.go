package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FundingSourceRequest references the account or card behind a plan or entry
type FundingSourceRequest struct {
	Kind string `json:"kind" binding:"required,oneof=ACCOUNT CARD"`
	ID   string `json:"id" binding:"required,uuid"`
}

// CreatePlanRequest represents a request to materialize an installment plan.
// Amounts accept JSON numbers or strings ("1200.00").
type CreatePlanRequest struct {
	OwnerID             string               `json:"owner_id" binding:"required,uuid"`
	TenantID            string               `json:"tenant_id" binding:"required,uuid"`
	FundingSource       FundingSourceRequest `json:"funding_source"`
	CategoryID          string               `json:"category_id,omitempty" binding:"omitempty,uuid"`
	Description         string               `json:"description" binding:"max=255"`
	TotalAmount         decimal.Decimal      `json:"total_amount"`
	InstallmentCount    int                  `json:"installment_count" binding:"required,min=1,max=600"`
	InterestRatePercent decimal.Decimal      `json:"interest_rate_percent"`
	FirstDueDate        string               `json:"first_due_date" binding:"required,datetime=2006-01-02"`
}

// UpdateEntryStatusRequest represents a request to settle or reopen an entry
type UpdateEntryStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PENDING PAID"`
}

// ImportEntryRequest is one standalone entry of an import batch
type ImportEntryRequest struct {
	OwnerID        string               `json:"owner_id" binding:"required,uuid"`
	TenantID       string               `json:"tenant_id" binding:"required,uuid"`
	FundingSource  FundingSourceRequest `json:"funding_source"`
	CategoryID     string               `json:"category_id,omitempty" binding:"omitempty,uuid"`
	Kind           string               `json:"kind" binding:"required,oneof=INCOME EXPENSE"`
	Description    string               `json:"description" binding:"max=255"`
	Amount         decimal.Decimal      `json:"amount"`
	OccursOn       string               `json:"occurs_on" binding:"required,datetime=2006-01-02"`
	DueOn          string               `json:"due_on,omitempty" binding:"omitempty,datetime=2006-01-02"` // defaults to occurs_on
	Status         string               `json:"status" binding:"required,oneof=PENDING PAID"`
	IdempotencyKey string               `json:"idempotency_key,omitempty" binding:"max=128"`
}

// ImportEntriesRequest represents a batch of entries to import atomically
type ImportEntriesRequest struct {
	Entries []ImportEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// ReconciliationRequest asks the worker to refresh a funding source
type ReconciliationRequest struct {
	FundingSource FundingSourceRequest `json:"funding_source"`
	Reason        string               `json:"reason,omitempty" binding:"max=64"`
}

// PlanResponse represents a plan in API responses
type PlanResponse struct {
	ID                  string               `json:"id"`
	OwnerID             string               `json:"owner_id"`
	TenantID            string               `json:"tenant_id"`
	FundingSource       shared.FundingSource `json:"funding_source"`
	CategoryID          string               `json:"category_id,omitempty"`
	Description         string               `json:"description"`
	TotalAmount         string               `json:"total_amount"`
	InstallmentCount    int                  `json:"installment_count"`
	InterestRatePercent string               `json:"interest_rate_percent"`
	TotalPayable        string               `json:"total_payable"`
	FirstDueDate        string               `json:"first_due_date"`
	Status              string               `json:"status"`
	CreatedAt           string               `json:"created_at"`
	UpdatedAt           string               `json:"updated_at"`
	Entries             []EntryResponse      `json:"entries,omitempty"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID               string               `json:"id"`
	FundingSource    shared.FundingSource `json:"funding_source"`
	CategoryID       string               `json:"category_id,omitempty"`
	Kind             string               `json:"kind"`
	Description      string               `json:"description"`
	Amount           string               `json:"amount"`
	OccursOn         string               `json:"occurs_on"`
	DueOn            string               `json:"due_on"`
	Status           string               `json:"status"`
	PlanID           string               `json:"plan_id,omitempty"`
	InstallmentIndex *int                 `json:"installment_index,omitempty"`
	IdempotencyKey   string               `json:"idempotency_key,omitempty"`
	CreatedAt        string               `json:"created_at"`
	UpdatedAt        string               `json:"updated_at"`
}

// ImportResponse reports the outcome of an import batch
type ImportResponse struct {
	Inserted []string `json:"inserted"`
	Skipped  []string `json:"skipped"`
}

// BalanceResponse carries a balance derived from the ledger
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// UsedLimitResponse carries a used limit derived from the ledger
type UsedLimitResponse struct {
	CardID    string `json:"card_id"`
	UsedLimit string `json:"used_limit"`
}

// ReconciliationAcceptedResponse acknowledges a queued reconciliation
type ReconciliationAcceptedResponse struct {
	EventID       string               `json:"event_id"`
	FundingSource shared.FundingSource `json:"funding_source"`
	Reason        string               `json:"reason"`
	Status        string               `json:"status"`
}

// SnapshotResponse represents one journal record
type SnapshotResponse struct {
	ID            string               `json:"id"`
	FundingSource shared.FundingSource `json:"funding_source"`
	Previous      string               `json:"previous"`
	Recomputed    string               `json:"recomputed"`
	Drift         string               `json:"drift"`
	Trigger       string               `json:"trigger"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	ComputedAt    string               `json:"computed_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func (r FundingSourceRequest) toDomain() (shared.FundingSource, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return shared.FundingSource{}, fmt.Errorf("%w: invalid funding source id", shared.ErrInvalidArgument)
	}
	src := shared.FundingSource{Kind: shared.SourceKind(r.Kind), ID: id}
	return src, src.Validate()
}

// parseSourceKind accepts "account", "accounts", "CARD" and so on
func parseSourceKind(kind string, id uuid.UUID) (shared.FundingSource, error) {
	kind = strings.ToUpper(strings.TrimSuffix(strings.ToLower(kind), "s"))
	src := shared.FundingSource{Kind: shared.SourceKind(kind), ID: id}
	return src, src.Validate()
}

func parseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", shared.ErrInvalidArgument, s)
	}
	return &id, nil
}

func parseDate(field, s string) (time.Time, error) {
	d, err := shared.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", shared.ErrInvalidArgument, field)
	}
	return d, nil
}

func (r CreatePlanRequest) toParams() (plan.NewPlanParams, error) {
	src, err := r.FundingSource.toDomain()
	if err != nil {
		return plan.NewPlanParams{}, err
	}
	categoryID, err := parseOptionalUUID(r.CategoryID)
	if err != nil {
		return plan.NewPlanParams{}, err
	}
	firstDue, err := parseDate("first_due_date", r.FirstDueDate)
	if err != nil {
		return plan.NewPlanParams{}, err
	}

	return plan.NewPlanParams{
		OwnerID:             uuid.MustParse(r.OwnerID),
		TenantID:            uuid.MustParse(r.TenantID),
		Source:              src,
		CategoryID:          categoryID,
		Description:         r.Description,
		TotalAmount:         r.TotalAmount,
		InstallmentCount:    r.InstallmentCount,
		InterestRatePercent: r.InterestRatePercent,
		FirstDueDate:        firstDue,
	}, nil
}

func (r ImportEntryRequest) toEntry() (*ledger.Entry, error) {
	src, err := r.FundingSource.toDomain()
	if err != nil {
		return nil, err
	}
	categoryID, err := parseOptionalUUID(r.CategoryID)
	if err != nil {
		return nil, err
	}
	occursOn, err := parseDate("occurs_on", r.OccursOn)
	if err != nil {
		return nil, err
	}
	dueOn := occursOn
	if r.DueOn != "" {
		if dueOn, err = parseDate("due_on", r.DueOn); err != nil {
			return nil, err
		}
	}

	return &ledger.Entry{
		OwnerID:        uuid.MustParse(r.OwnerID),
		TenantID:       uuid.MustParse(r.TenantID),
		Source:         src,
		CategoryID:     categoryID,
		Kind:           shared.EntryKind(r.Kind),
		Description:    r.Description,
		Amount:         r.Amount,
		OccursOn:       occursOn,
		DueOn:          dueOn,
		Status:         shared.EntryStatus(r.Status),
		IdempotencyKey: r.IdempotencyKey,
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// mapPlanToResponse maps a plan and its installments to a plan response DTO
func mapPlanToResponse(p *plan.InstallmentPlan, entries []*ledger.Entry) PlanResponse {
	response := PlanResponse{
		ID:                  p.ID.String(),
		OwnerID:             p.OwnerID.String(),
		TenantID:            p.TenantID.String(),
		FundingSource:       p.Source,
		CategoryID:          optionalID(p.CategoryID),
		Description:         p.Description,
		TotalAmount:         p.TotalAmount.StringFixed(shared.CurrencyPlaces),
		InstallmentCount:    p.InstallmentCount,
		InterestRatePercent: p.InterestRatePercent.String(),
		TotalPayable:        p.TotalPayable.StringFixed(shared.CurrencyPlaces),
		FirstDueDate:        p.FirstDueDate.Format(shared.DateLayout),
		Status:              string(p.Status),
		CreatedAt:           formatTime(p.CreatedAt),
		UpdatedAt:           formatTime(p.UpdatedAt),
	}
	for _, e := range entries {
		response.Entries = append(response.Entries, mapEntryToResponse(e))
	}
	return response
}

// mapEntryToResponse maps a ledger entry to an entry response DTO
func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	return EntryResponse{
		ID:               e.ID.String(),
		FundingSource:    e.Source,
		CategoryID:       optionalID(e.CategoryID),
		Kind:             string(e.Kind),
		Description:      e.Description,
		Amount:           e.Amount.StringFixed(shared.CurrencyPlaces),
		OccursOn:         e.OccursOn.Format(shared.DateLayout),
		DueOn:            e.DueOn.Format(shared.DateLayout),
		Status:           string(e.Status),
		PlanID:           optionalID(e.PlanID),
		InstallmentIndex: e.InstallmentIndex,
		IdempotencyKey:   e.IdempotencyKey,
		CreatedAt:        formatTime(e.CreatedAt),
		UpdatedAt:        formatTime(e.UpdatedAt),
	}
}

func mapSnapshotToResponse(s *reconciliation.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:            s.ID.String(),
		FundingSource: s.Source,
		Previous:      s.Previous.StringFixed(shared.CurrencyPlaces),
		Recomputed:    s.Recomputed.StringFixed(shared.CurrencyPlaces),
		Drift:         s.Drift.StringFixed(shared.CurrencyPlaces),
		Trigger:       s.Trigger,
		CorrelationID: s.CorrelationID,
		ComputedAt:    formatTime(s.ComputedAt),
	}
}
