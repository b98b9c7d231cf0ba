package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const cardColumns = `id, owner_id, tenant_id, name, limit_amount, used_limit, version, created_at, updated_at`

// CardRepository implements the card.Repository interface for PostgreSQL
type CardRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCardRepository creates a new PostgreSQL card repository
func NewCardRepository(logger *slog.Logger, db *persistence.PostgresDB) card.Repository {
	return &CardRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to the given transaction
func (r *CardRepository) WithTx(tx pgx.Tx) card.Repository {
	return &CardRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new card in the database
func (r *CardRepository) Create(ctx context.Context, c *card.Card) error {
	query := `
		INSERT INTO cards (id, owner_id, tenant_id, name, limit_amount, used_limit, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.OwnerID,
		c.TenantID,
		c.Name,
		c.LimitAmount,
		c.UsedLimit,
		c.Version,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create card", "error", err)
		return fmt.Errorf("failed to create card: %w", err)
	}

	return nil
}

// GetByID retrieves a card by its ID
func (r *CardRepository) GetByID(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	c, err := scanCard(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{CardID: id}
		}
		r.logger.Error("Failed to get card", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get card: %w", err)
	}

	return c, nil
}

// LockForUpdate obtains a pessimistic lock on the card row
func (r *CardRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*card.Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 FOR UPDATE`

	c, err := scanCard(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, card.ErrCardNotFound{CardID: id}
		}
		r.logger.Error("Failed to lock card for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock card for update: %w", err)
	}

	return c, nil
}

// IncrementUsedLimit adds amount to the used limit in place, so concurrent
// reservations against the same card never lose an update.
func (r *CardRepository) IncrementUsedLimit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, updatedAt time.Time) error {
	query := `
		UPDATE cards
		SET used_limit = used_limit + $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, amount, updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to increment card used limit", "id", id.String(), "error", err)
		return fmt.Errorf("failed to increment card used limit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return card.ErrCardNotFound{CardID: id}
	}

	return nil
}

// UpdateUsedLimit overwrites the used limit with a reconciled value
func (r *CardRepository) UpdateUsedLimit(ctx context.Context, id uuid.UUID, used decimal.Decimal, updatedAt time.Time) error {
	query := `
		UPDATE cards
		SET used_limit = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, used, updatedAt, id)
	if err != nil {
		r.logger.Error("Failed to update card used limit", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update card used limit: %w", err)
	}

	if result.RowsAffected() == 0 {
		return card.ErrCardNotFound{CardID: id}
	}

	return nil
}

// ListIDs returns one page of card ids ordered by id
func (r *CardRepository) ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	query := `SELECT id FROM cards ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list card ids", "error", err)
		return nil, fmt.Errorf("failed to list card ids: %w", err)
	}

	ids, err := collectIDs(rows)
	if err != nil {
		r.logger.Error("Failed to scan card ids", "error", err)
		return nil, fmt.Errorf("failed to scan card ids: %w", err)
	}
	return ids, nil
}

func scanCard(row pgx.Row) (*card.Card, error) {
	var c card.Card
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.TenantID,
		&c.Name,
		&c.LimitAmount,
		&c.UsedLimit,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
