package card

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptyName     = errors.New("card name cannot be empty")
	ErrNegativeLimit = errors.New("card limit cannot be negative")
)

// Card represents a credit card. UsedLimit is reserved up-front by installment
// plans and re-derivable from the card's expense entries.
type Card struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"owner_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Name        string          `json:"name"`
	LimitAmount decimal.Decimal `json:"limit_amount"`
	UsedLimit   decimal.Decimal `json:"used_limit"`
	Version     int             `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewCard creates a card with nothing consumed
func NewCard(ownerID, tenantID uuid.UUID, name string, limit decimal.Decimal) (*Card, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if limit.IsNegative() {
		return nil, ErrNegativeLimit
	}

	now := time.Now().UTC()
	return &Card{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		TenantID:    tenantID,
		Name:        name,
		LimitAmount: limit,
		UsedLimit:   decimal.Zero,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AvailableLimit may be negative; over-limit purchases are a caller policy
func (c *Card) AvailableLimit() decimal.Decimal {
	return c.LimitAmount.Sub(c.UsedLimit)
}

// RefreshCache stores a recomputed used limit and returns the previous value
func (c *Card) RefreshCache(used decimal.Decimal, now time.Time) decimal.Decimal {
	previous := c.UsedLimit
	c.UsedLimit = used
	c.UpdatedAt = now
	c.Version++
	return previous
}
