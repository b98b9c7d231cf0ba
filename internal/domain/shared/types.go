package shared

import (
	"fmt"

	"github.com/google/uuid"
)

// EntryKind defines the direction of a ledger entry
type EntryKind string

const (
	EntryKindExpense EntryKind = "EXPENSE"
	EntryKindIncome  EntryKind = "INCOME"
)

// Valid reports whether k is a known entry kind
func (k EntryKind) Valid() bool {
	return k == EntryKindExpense || k == EntryKindIncome
}

// EntryStatus defines ledger entry settlement states
type EntryStatus string

const (
	EntryStatusPending EntryStatus = "PENDING"
	EntryStatusPaid    EntryStatus = "PAID"
)

// Valid reports whether s is a known entry status
func (s EntryStatus) Valid() bool {
	return s == EntryStatusPending || s == EntryStatusPaid
}

// PlanStatus defines installment plan lifecycle states
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCancelled PlanStatus = "CANCELLED"
	PlanStatusCompleted PlanStatus = "COMPLETED"
)

// IsTerminal reports whether no further lifecycle transition is allowed
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCancelled || s == PlanStatusCompleted
}

// SourceKind identifies what funds a plan or an entry
type SourceKind string

const (
	SourceKindAccount SourceKind = "ACCOUNT"
	SourceKindCard    SourceKind = "CARD"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FundingSource references exactly one account or one card
type FundingSource struct {
	Kind SourceKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// AccountSource builds a funding source pointing at an account
func AccountSource(id uuid.UUID) FundingSource {
	return FundingSource{Kind: SourceKindAccount, ID: id}
}

// CardSource builds a funding source pointing at a card
func CardSource(id uuid.UUID) FundingSource {
	return FundingSource{Kind: SourceKindCard, ID: id}
}

// NewFundingSource builds a funding source from the nullable account/card
// columns used by storage. Exactly one of them must be set.
func NewFundingSource(accountID, cardID *uuid.UUID) (FundingSource, error) {
	switch {
	case accountID != nil && cardID != nil:
		return FundingSource{}, fmt.Errorf("%w: funding source must reference an account or a card, not both", ErrInvalidArgument)
	case accountID != nil:
		return AccountSource(*accountID), nil
	case cardID != nil:
		return CardSource(*cardID), nil
	default:
		return FundingSource{}, fmt.Errorf("%w: funding source is required", ErrInvalidArgument)
	}
}

// Validate checks the funding source kind and id
func (f FundingSource) Validate() error {
	if f.Kind != SourceKindAccount && f.Kind != SourceKindCard {
		return fmt.Errorf("%w: unknown funding source kind %q", ErrInvalidArgument, f.Kind)
	}
	if f.ID == uuid.Nil {
		return fmt.Errorf("%w: funding source id is required", ErrInvalidArgument)
	}
	return nil
}

// AccountID returns the account id, or nil when the source is a card
func (f FundingSource) AccountID() *uuid.UUID {
	if f.Kind != SourceKindAccount {
		return nil
	}
	id := f.ID
	return &id
}

// CardID returns the card id, or nil when the source is an account
func (f FundingSource) CardID() *uuid.UUID {
	if f.Kind != SourceKindCard {
		return nil
	}
	id := f.ID
	return &id
}

func (f FundingSource) String() string {
	return string(f.Kind) + ":" + f.ID.String()
}
