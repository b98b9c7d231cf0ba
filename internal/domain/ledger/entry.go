package ledger

import (
	"fmt"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Entry represents a single dated money movement in the ledger
type Entry struct {
	ID               uuid.UUID            `json:"id"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	TenantID         uuid.UUID            `json:"tenant_id"`
	Source           shared.FundingSource `json:"funding_source"`
	CategoryID       *uuid.UUID           `json:"category_id,omitempty"`
	Kind             shared.EntryKind     `json:"kind"`
	Description      string               `json:"description"`
	Amount           decimal.Decimal      `json:"amount"`
	OccursOn         time.Time            `json:"occurs_on"`
	DueOn            time.Time            `json:"due_on"`
	Status           shared.EntryStatus   `json:"status"`
	PlanID           *uuid.UUID           `json:"plan_id,omitempty"`
	InstallmentIndex *int                 `json:"installment_index,omitempty"` // 1-based, set iff PlanID is set
	IdempotencyKey   string               `json:"idempotency_key,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Validate checks the field constraints every persisted entry must satisfy
func (e *Entry) Validate() error {
	if err := e.Source.Validate(); err != nil {
		return err
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown entry kind %q", shared.ErrInvalidArgument, e.Kind)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown entry status %q", shared.ErrInvalidArgument, e.Status)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: entry amount cannot be negative", shared.ErrInvalidArgument)
	}
	if (e.PlanID == nil) != (e.InstallmentIndex == nil) {
		return fmt.Errorf("%w: plan id and installment index must be set together", shared.ErrInvalidArgument)
	}
	if e.InstallmentIndex != nil && *e.InstallmentIndex < 1 {
		return fmt.Errorf("%w: installment index must be 1-based", shared.ErrInvalidArgument)
	}
	return nil
}

// SignedAmount returns the amount with income positive and expense negative
func (e *Entry) SignedAmount() decimal.Decimal {
	if e.Kind == shared.EntryKindIncome {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Filter narrows ledger queries. Nil fields are not applied.
type Filter struct {
	PlanID    *uuid.UUID
	AccountID *uuid.UUID
	CardID    *uuid.UUID
	Kind      *shared.EntryKind
	Status    *shared.EntryStatus
}

// ForSource returns a filter restricted to the given funding source
func ForSource(src shared.FundingSource) Filter {
	return Filter{AccountID: src.AccountID(), CardID: src.CardID()}
}

// WithKind returns a copy of f restricted to kind
func (f Filter) WithKind(kind shared.EntryKind) Filter {
	f.Kind = &kind
	return f
}

// WithStatus returns a copy of f restricted to status
func (f Filter) WithStatus(status shared.EntryStatus) Filter {
	f.Status = &status
	return f
}

// Matches reports whether e satisfies every non-nil field of f
func (f Filter) Matches(e *Entry) bool {
	if f.PlanID != nil && (e.PlanID == nil || *e.PlanID != *f.PlanID) {
		return false
	}
	if f.AccountID != nil {
		id := e.Source.AccountID()
		if id == nil || *id != *f.AccountID {
			return false
		}
	}
	if f.CardID != nil {
		id := e.Source.CardID()
		if id == nil || *id != *f.CardID {
			return false
		}
	}
	if f.Kind != nil && e.Kind != *f.Kind {
		return false
	}
	if f.Status != nil && e.Status != *f.Status {
		return false
	}
	return true
}
