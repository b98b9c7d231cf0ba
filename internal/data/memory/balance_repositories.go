package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type AccountRepository struct {
	store *Store
}

var _ account.Repository = (*AccountRepository)(nil)

func (r *AccountRepository) WithTx(pgx.Tx) account.Repository { return r }

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.accounts[a.ID]; ok {
		return fmt.Errorf("failed to create account: account %s already exists", a.ID)
	}
	r.store.data.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.data.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &a, nil
}

func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) UpdateCachedBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, updatedAt time.Time) error {
	if err := r.store.fault("account.UpdateCachedBalance"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	a, ok := r.store.data.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	a.CachedBalance = balance
	a.Version++
	a.UpdatedAt = updatedAt
	r.store.data.accounts[id] = a
	return nil
}

func (r *AccountRepository) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return page(sortedIDs(r.store.data.accounts), limit, offset), nil
}

type CardRepository struct {
	store *Store
}

var _ card.Repository = (*CardRepository)(nil)

func (r *CardRepository) WithTx(pgx.Tx) card.Repository { return r }

func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.cards[c.ID]; ok {
		return fmt.Errorf("failed to create card: card %s already exists", c.ID)
	}
	r.store.data.cards[c.ID] = *c
	return nil
}

func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.data.cards[id]
	if !ok {
		return nil, card.ErrCardNotFound{CardID: id}
	}
	return &c, nil
}

func (r *CardRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	return r.GetByID(ctx, id)
}

func (r *CardRepository) IncrementUsedLimit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, updatedAt time.Time) error {
	if err := r.store.fault("card.IncrementUsedLimit"); err != nil {
		return err
	}
	return r.update(id, func(c *card.Card) {
		c.UsedLimit = c.UsedLimit.Add(amount)
		c.UpdatedAt = updatedAt
	})
}

func (r *CardRepository) UpdateUsedLimit(ctx context.Context, id uuid.UUID, used decimal.Decimal, updatedAt time.Time) error {
	if err := r.store.fault("card.UpdateUsedLimit"); err != nil {
		return err
	}
	return r.update(id, func(c *card.Card) {
		c.UsedLimit = used
		c.UpdatedAt = updatedAt
	})
}

func (r *CardRepository) update(id uuid.UUID, apply func(c *card.Card)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c, ok := r.store.data.cards[id]
	if !ok {
		return card.ErrCardNotFound{CardID: id}
	}
	apply(&c)
	c.Version++
	r.store.data.cards[id] = c
	return nil
}

func (r *CardRepository) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return page(sortedIDs(r.store.data.cards), limit, offset), nil
}
