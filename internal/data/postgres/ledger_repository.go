package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const entryColumns = `id, owner_id, tenant_id, account_id, card_id, category_id, kind, description, amount,
	occurs_on, due_on, status, plan_id, installment_index, idempotency_key, created_at, updated_at`

const uniqueViolation = "23505"

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger entry repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Insert stores a single ledger entry. Unique index collisions on the idempotency
// key or on (plan_id, installment_index) surface as ErrDuplicateEntry.
func (r *LedgerRepository) Insert(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.OwnerID,
		e.TenantID,
		e.Source.AccountID(),
		e.Source.CardID(),
		e.CategoryID,
		e.Kind,
		e.Description,
		e.Amount,
		e.OccursOn,
		e.DueOn,
		e.Status,
		e.PlanID,
		e.InstallmentIndex,
		nullableString(e.IdempotencyKey),
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledger.ErrDuplicateEntry{Key: duplicateKey(e)}
		}
		r.logger.Error("Failed to insert ledger entry", "entry_id", e.ID.String(), "error", err)
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

// BulkInsert inserts entries in order on the current querier. Callers needing
// all-or-nothing semantics must bind the repository to a transaction first.
func (r *LedgerRepository) BulkInsert(ctx context.Context, entries []*ledger.Entry) error {
	for i, e := range entries {
		if err := r.Insert(ctx, e); err != nil {
			return fmt.Errorf("bulk insert stopped at entry %d: %w", i, err)
		}
	}
	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "entry_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return e, nil
}

// GetByIdempotencyKey retrieves a ledger entry by its idempotency key
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE idempotency_key = $1`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{}
		}
		r.logger.Error("Failed to get ledger entry by idempotency key", "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", err)
	}

	return e, nil
}

// ListByPlan returns the entries of a plan ordered by installment index
func (r *LedgerRepository) ListByPlan(ctx context.Context, planID uuid.UUID) ([]*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE plan_id = $1 ORDER BY installment_index ASC`

	rows, err := r.querier.Query(ctx, query, planID)
	if err != nil {
		r.logger.Error("Failed to list plan entries", "plan_id", planID.String(), "error", err)
		return nil, fmt.Errorf("failed to list plan entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "plan_id", planID.String(), "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over plan entries", "plan_id", planID.String(), "error", err)
		return nil, fmt.Errorf("error iterating over plan entries: %w", err)
	}

	return entries, nil
}

// UpdateStatus transitions a single entry
func (r *LedgerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status shared.EntryStatus, updatedAt time.Time) error {
	query := `
		UPDATE ledger_entries
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to update ledger entry status",
			"entry_id", id.String(),
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update ledger entry status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// UpdateStatusByPlan transitions every entry of a plan currently in status from
func (r *LedgerRepository) UpdateStatusByPlan(ctx context.Context, planID uuid.UUID, from, to shared.EntryStatus, updatedAt time.Time) (int64, error) {
	query := `
		UPDATE ledger_entries
		SET status = $1, updated_at = $2
		WHERE plan_id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, updatedAt, planID, from)
	if err != nil {
		r.logger.Error("Failed to update plan entry statuses", "plan_id", planID.String(), "error", err)
		return 0, fmt.Errorf("failed to update plan entry statuses: %w", err)
	}

	return result.RowsAffected(), nil
}

// DeleteByPlanAndStatus removes the plan's entries in the given status
func (r *LedgerRepository) DeleteByPlanAndStatus(ctx context.Context, planID uuid.UUID, status shared.EntryStatus) (int64, error) {
	query := `
		DELETE FROM ledger_entries
		WHERE plan_id = $1 AND status = $2
	`

	result, err := r.querier.Exec(ctx, query, planID, status)
	if err != nil {
		r.logger.Error("Failed to delete plan entries", "plan_id", planID.String(), "status", string(status), "error", err)
		return 0, fmt.Errorf("failed to delete plan entries: %w", err)
	}

	return result.RowsAffected(), nil
}

// Sum aggregates the amount column over the filtered entries
func (r *LedgerRepository) Sum(ctx context.Context, filter ledger.Filter) (decimal.Decimal, error) {
	where, args := buildEntryFilter(filter)
	query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries` + where

	var total decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to sum ledger entries", "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return total, nil
}

// Count returns the number of filtered entries
func (r *LedgerRepository) Count(ctx context.Context, filter ledger.Filter) (int64, error) {
	where, args := buildEntryFilter(filter)
	query := `SELECT COUNT(*) FROM ledger_entries` + where

	var count int64
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// buildEntryFilter renders the non-nil filter fields as a WHERE clause with
// positional arguments in a fixed column order.
func buildEntryFilter(f ledger.Filter) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		clauses = append(clauses, column+" = $"+strconv.Itoa(len(args)))
	}

	if f.PlanID != nil {
		add("plan_id", *f.PlanID)
	}
	if f.AccountID != nil {
		add("account_id", *f.AccountID)
	}
	if f.CardID != nil {
		add("card_id", *f.CardID)
	}
	if f.Kind != nil {
		add("kind", *f.Kind)
	}
	if f.Status != nil {
		add("status", *f.Status)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var (
		e              ledger.Entry
		accountID      *uuid.UUID
		cardID         *uuid.UUID
		idempotencyKey *string
	)
	err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&e.TenantID,
		&accountID,
		&cardID,
		&e.CategoryID,
		&e.Kind,
		&e.Description,
		&e.Amount,
		&e.OccursOn,
		&e.DueOn,
		&e.Status,
		&e.PlanID,
		&e.InstallmentIndex,
		&idempotencyKey,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Source, err = shared.NewFundingSource(accountID, cardID)
	if err != nil {
		return nil, fmt.Errorf("corrupt funding source on entry %s: %w", e.ID, err)
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}
	return &e, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func duplicateKey(e *ledger.Entry) string {
	if e.IdempotencyKey != "" {
		return e.IdempotencyKey
	}
	if e.PlanID != nil && e.InstallmentIndex != nil {
		return e.PlanID.String() + ":" + strconv.Itoa(*e.InstallmentIndex)
	}
	return e.ID.String()
}
