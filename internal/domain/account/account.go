package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors
var (
	ErrEmptyName              = errors.New("account name cannot be empty")
	ErrNegativeInitialBalance = errors.New("initial balance cannot be negative")
)

// Account represents a cash account. CachedBalance is derived from the ledger
// and only refreshed by reconciliation.
type Account struct {
	ID             uuid.UUID       `json:"id"`
	OwnerID        uuid.UUID       `json:"owner_id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Name           string          `json:"name"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CachedBalance  decimal.Decimal `json:"cached_balance"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewAccount creates a new account whose cached balance starts at the baseline
func NewAccount(ownerID, tenantID uuid.UUID, name string, initialBalance decimal.Decimal) (*Account, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if initialBalance.IsNegative() {
		return nil, ErrNegativeInitialBalance
	}

	now := time.Now().UTC()
	return &Account{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		TenantID:       tenantID,
		Name:           name,
		InitialBalance: initialBalance,
		CachedBalance:  initialBalance,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// RefreshCache stores a recomputed balance and returns the previous cached value
func (a *Account) RefreshCache(balance decimal.Decimal, now time.Time) decimal.Decimal {
	previous := a.CachedBalance
	a.CachedBalance = balance
	a.UpdatedAt = now
	a.Version++
	return previous
}
