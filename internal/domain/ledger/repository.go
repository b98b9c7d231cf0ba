package ledger

import (
	"context"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages ledger entry persistence
type Repository interface {
	Insert(ctx context.Context, entry *Entry) error
	BulkInsert(ctx context.Context, entries []*Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Entry, error)
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Entry, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, updatedAt time.Time) error

	// UpdateStatusByPlan moves every entry of the plan in status from to status to
	// and returns the number of rows changed
	UpdateStatusByPlan(ctx context.Context, planID uuid.UUID, from, to shared.EntryStatus, updatedAt time.Time) (int64, error)
	DeleteByPlanAndStatus(ctx context.Context, planID uuid.UUID, status shared.EntryStatus) (int64, error)

	// Sum aggregates amounts over the entries matching filter; an empty match yields zero
	Sum(ctx context.Context, filter Filter) (decimal.Decimal, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target EntryID is empty, consider it a match for any ErrEntryNotFound
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

// ErrDuplicateEntry indicates an idempotency key or installment index collision
type ErrDuplicateEntry struct {
	Key string
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate ledger entry: " + e.Key
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.Key == "" {
		return true
	}
	return e.Key == t.Key
}
