package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidArgument is wrapped by every precondition failure
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is matched (via errors.Is) by every typed not-found error
	ErrNotFound = errors.New("not found")
)

// InvariantViolation reports that the persisted installments of a plan do not
// add up to the plan total.
type InvariantViolation struct {
	PlanID   uuid.UUID
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (e InvariantViolation) Error() string {
	return fmt.Sprintf("installment sum invariant violated for plan %s: expected %s, got %s",
		e.PlanID, e.Expected.StringFixed(2), e.Actual.StringFixed(2))
}
