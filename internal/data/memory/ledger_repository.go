package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type LedgerRepository struct {
	store *Store
}

var _ ledger.Repository = (*LedgerRepository)(nil)

func (r *LedgerRepository) WithTx(pgx.Tx) ledger.Repository { return r }

// Insert enforces the same unique constraints as the ledger_entries table:
// primary key, (plan_id, installment_index) and idempotency_key.
func (r *LedgerRepository) Insert(ctx context.Context, e *ledger.Entry) error {
	if err := r.store.fault("ledger.Insert"); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.entries[e.ID]; ok {
		return ledger.ErrDuplicateEntry{Key: e.ID.String()}
	}
	for _, existing := range r.store.data.entries {
		if e.IdempotencyKey != "" && existing.IdempotencyKey == e.IdempotencyKey {
			return ledger.ErrDuplicateEntry{Key: e.IdempotencyKey}
		}
		if e.PlanID != nil && existing.PlanID != nil && *existing.PlanID == *e.PlanID &&
			*existing.InstallmentIndex == *e.InstallmentIndex {
			return ledger.ErrDuplicateEntry{Key: fmt.Sprintf("%s:%d", e.PlanID, *e.InstallmentIndex)}
		}
	}

	r.store.data.entries[e.ID] = *e
	return nil
}

func (r *LedgerRepository) BulkInsert(ctx context.Context, entries []*ledger.Entry) error {
	for i, e := range entries {
		if err := r.Insert(ctx, e); err != nil {
			return fmt.Errorf("bulk insert stopped at entry %d: %w", i, err)
		}
	}
	return nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	e, ok := r.store.data.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound{EntryID: id}
	}
	return &e, nil
}

func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, e := range r.store.data.entries {
		if key != "" && e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{}
}

func (r *LedgerRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*ledger.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	entries := r.matching(ledger.Filter{PlanID: &planID})
	slices.SortFunc(entries, func(a, b *ledger.Entry) int { return *a.InstallmentIndex - *b.InstallmentIndex })
	return entries, nil
}

func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, updatedAt time.Time) error {
	if err := r.store.fault("ledger.UpdateStatus"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	e, ok := r.store.data.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound{EntryID: id}
	}
	e.Status = status
	e.UpdatedAt = updatedAt
	r.store.data.entries[id] = e
	return nil
}

func (r *LedgerRepository) UpdateStatusByPlan(ctx context.Context, planID uuid.UUID, from, to shared.EntryStatus, updatedAt time.Time) (int64, error) {
	if err := r.store.fault("ledger.UpdateStatusByPlan"); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, e := range r.store.data.entries {
		if e.PlanID != nil && *e.PlanID == planID && e.Status == from {
			e.Status = to
			e.UpdatedAt = updatedAt
			r.store.data.entries[id] = e
			n++
		}
	}
	return n, nil
}

func (r *LedgerRepository) DeleteByPlanAndStatus(ctx context.Context, planID uuid.UUID, status shared.EntryStatus) (int64, error) {
	if err := r.store.fault("ledger.DeleteByPlanAndStatus"); err != nil {
		return 0, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var n int64
	for id, e := range r.store.data.entries {
		if e.PlanID != nil && *e.PlanID == planID && e.Status == status {
			delete(r.store.data.entries, id)
			n++
		}
	}
	return n, nil
}

func (r *LedgerRepository) Sum(ctx context.Context, filter ledger.Filter) (decimal.Decimal, error) {
	if err := r.store.fault("ledger.Sum"); err != nil {
		return decimal.Zero, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	total := decimal.Zero
	for _, e := range r.matching(filter) {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func (r *LedgerRepository) Count(ctx context.Context, filter ledger.Filter) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return int64(len(r.matching(filter))), nil
}

// matching must be called with the store lock held
func (r *LedgerRepository) matching(filter ledger.Filter) []*ledger.Entry {
	entries := []*ledger.Entry{}
	for _, e := range r.store.data.entries {
		if filter.Matches(&e) {
			copied := e
			entries = append(entries, &copied)
		}
	}
	return entries
}
