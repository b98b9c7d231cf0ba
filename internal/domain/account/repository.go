package account

import (
	"context"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// LockForUpdate acquires a pessimistic lock for cache refreshes
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, updatedAt time.Time) error

	// ListIDs pages through account ids in a stable order
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}
