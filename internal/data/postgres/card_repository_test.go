package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cardColumnNames = []string{"id", "owner_id", "tenant_id", "name", "limit_amount", "used_limit", "version", "created_at", "updated_at"}

func TestCardRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	c := &card.Card{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		TenantID:    uuid.New(),
		Name:        "Visa",
		LimitAmount: decimal.RequireFromString("5000"),
		UsedLimit:   decimal.Zero,
		Version:     1,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	mock.ExpectExec(`INSERT INTO cards`).
		WithArgs(c.ID, c.OwnerID, c.TenantID, c.Name, c.LimitAmount, c.UsedLimit, c.Version, c.CreatedAt, c.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Create(ctx, c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	cardID := uuid.New()
	now := time.Now()
	expected := &card.Card{
		ID:          cardID,
		OwnerID:     uuid.New(),
		TenantID:    uuid.New(),
		Name:        "Visa",
		LimitAmount: decimal.RequireFromString("5000"),
		UsedLimit:   decimal.RequireFromString("900"),
		Version:     2,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	query := `SELECT (.+) FROM cards WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(cardID).WillReturnRows(
			pgxmock.NewRows(cardColumnNames).AddRow(expected.ID, expected.OwnerID, expected.TenantID, expected.Name,
				expected.LimitAmount, expected.UsedLimit, expected.Version, expected.CreatedAt, expected.UpdatedAt))

		c, err := repo.GetByID(ctx, cardID)
		require.NoError(t, err)
		assert.Equal(t, expected, c)
		assert.Equal(t, "4100.00", c.AvailableLimit().StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(cardID).WillReturnError(pgx.ErrNoRows)

		c, err := repo.GetByID(ctx, cardID)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, card.ErrCardNotFound{CardID: cardID})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	cardID := uuid.New()
	query := `SELECT (.+) FROM cards WHERE id = \$1 FOR UPDATE`

	dbErr := errors.New("lock timeout")
	mock.ExpectQuery(query).WithArgs(cardID).WillReturnError(dbErr)

	_, err = repo.LockForUpdate(ctx, cardID)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to lock card for update")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardRepository_IncrementUsedLimit(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	cardID := uuid.New()
	amount := decimal.RequireFromString("1200.00")
	now := time.Now()
	query := `UPDATE cards SET used_limit = used_limit \+ \$1`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(amount, now, cardID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.IncrementUsedLimit(ctx, cardID, amount, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown card", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(amount, now, cardID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.IncrementUsedLimit(ctx, cardID, amount, now)
		assert.ErrorIs(t, err, card.ErrCardNotFound{CardID: cardID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardRepository_UpdateUsedLimit(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	cardID := uuid.New()
	used := decimal.RequireFromString("900.00")
	now := time.Now()
	query := `UPDATE cards SET used_limit = \$1, version = version \+ 1, updated_at = \$2 WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(used, now, cardID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateUsedLimit(ctx, cardID, used, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("deadlock detected")
		mock.ExpectExec(query).WithArgs(used, now, cardID).WillReturnError(dbErr)

		err := repo.UpdateUsedLimit(ctx, cardID, used, now)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCardRepository_ListIDs(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &CardRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	mock.ExpectQuery(`SELECT id FROM cards ORDER BY id LIMIT \$1 OFFSET \$2`).WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	ids, err := repo.ListIDs(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
