package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountColumnNames = []string{"id", "owner_id", "tenant_id", "name", "initial_balance", "cached_balance", "version", "created_at", "updated_at"}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}

	acc := &account.Account{
		ID:             uuid.New(),
		OwnerID:        uuid.New(),
		TenantID:       uuid.New(),
		Name:           "Checking",
		InitialBalance: decimal.RequireFromString("1000.00"),
		CachedBalance:  decimal.RequireFromString("1000.00"),
		Version:        1,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	query := `INSERT INTO accounts \(id, owner_id, tenant_id, name, initial_balance, cached_balance, version, created_at, updated_at\)`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.OwnerID, acc.TenantID, acc.Name, acc.InitialBalance, acc.CachedBalance, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.OwnerID, acc.TenantID, acc.Name, acc.InitialBalance, acc.CachedBalance, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	now := time.Now()

	expected := &account.Account{
		ID:             accID,
		OwnerID:        uuid.New(),
		TenantID:       uuid.New(),
		Name:           "Checking",
		InitialBalance: decimal.RequireFromString("1000.00"),
		CachedBalance:  decimal.RequireFromString("1200.00"),
		Version:        4,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	query := `SELECT (.+) FROM accounts WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountColumnNames).
			AddRow(expected.ID, expected.OwnerID, expected.TenantID, expected.Name, expected.InitialBalance, expected.CachedBalance, expected.Version, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, accID, notFound.AccountID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	now := time.Now()
	query := `SELECT (.+) FROM accounts WHERE id = \$1 FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountColumnNames).
			AddRow(accID, uuid.New(), uuid.New(), "Checking", decimal.NewFromInt(50), decimal.NewFromInt(75), 2, now, now)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, accID, acc.ID)
		assert.Equal(t, "75.00", acc.CachedBalance.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, accID)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: accID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_UpdateCachedBalance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	accID := uuid.New()
	balance := decimal.RequireFromString("1200.00")
	now := time.Now()
	query := `UPDATE accounts SET cached_balance = \$1, version = version \+ 1, updated_at = \$2 WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(balance, now, accID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateCachedBalance(ctx, accID, balance, now))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(balance, now, accID).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateCachedBalance(ctx, accID, balance, now)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("connection reset")
		mock.ExpectExec(query).WithArgs(balance, now, accID).WillReturnError(dbErr)

		err := repo.UpdateCachedBalance(ctx, accID, balance, now)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to update account cached balance")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListIDs(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id1, id2 := uuid.New(), uuid.New()
	query := `SELECT id FROM accounts ORDER BY id LIMIT \$1 OFFSET \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(50, 100).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id1).AddRow(id2))

		ids, err := repo.ListIDs(ctx, 50, 100)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{id1, id2}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty page", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(50, 150).WillReturnRows(pgxmock.NewRows([]string{"id"}))

		ids, err := repo.ListIDs(ctx, 50, 150)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(50, 0).WillReturnError(errors.New("boom"))

		_, err := repo.ListIDs(ctx, 50, 0)
		assert.ErrorContains(t, err, "failed to list account ids")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
