package card

import (
	"context"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines card persistence operations
type Repository interface {
	Create(ctx context.Context, card *Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Card, error)

	// IncrementUsedLimit reserves amount against the card in a single statement
	IncrementUsedLimit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, updatedAt time.Time) error
	UpdateUsedLimit(ctx context.Context, id uuid.UUID, used decimal.Decimal, updatedAt time.Time) error
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrCardNotFound indicates missing card
type ErrCardNotFound struct {
	CardID uuid.UUID
}

func (e ErrCardNotFound) Error() string {
	return "card not found: " + e.CardID.String()
}

// Is implements the errors.Is interface for ErrCardNotFound
func (e ErrCardNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrCardNotFound)
	if !ok {
		return false
	}
	return t.CardID == uuid.Nil || t.CardID == e.CardID
}
