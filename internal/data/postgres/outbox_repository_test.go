package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var outboxColumnNames = []string{"id", "snapshot_id", "source_kind", "source_id", "payload", "status", "attempts", "created_at", "last_attempt_at"}

func testOutboxMessage() *outbox.Message {
	return &outbox.Message{
		SnapshotID: uuid.New(),
		SourceKind: shared.SourceKindCard,
		SourceID:   uuid.New(),
		Payload:    json.RawMessage(`{"trigger":"materialize"}`),
		Status:     shared.OutboxStatusPending,
		CreatedAt:  time.Now(),
	}
}

func TestOutboxRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `INSERT INTO reconciliation_outbox \(snapshot_id, source_kind, source_id, payload, status, attempts, created_at\)`

	t.Run("success", func(t *testing.T) {
		msg := testOutboxMessage()
		mock.ExpectQuery(query).
			WithArgs(msg.SnapshotID, msg.SourceKind, msg.SourceID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(17)))

		require.NoError(t, repo.Create(ctx, msg))
		assert.Equal(t, int64(17), msg.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		msg := testOutboxMessage()
		dbErr := errors.New("unique violation")
		mock.ExpectQuery(query).
			WithArgs(msg.SnapshotID, msg.SourceKind, msg.SourceID, msg.Payload, msg.Status, msg.Attempts, msg.CreatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, msg)
		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "failed to create outbox message")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `SELECT (.+) FROM reconciliation_outbox WHERE status = \$1 ORDER BY created_at ASC LIMIT \$2`

	t.Run("success", func(t *testing.T) {
		m1, m2 := testOutboxMessage(), testOutboxMessage()
		m1.ID, m2.ID = 1, 2
		rows := pgxmock.NewRows(outboxColumnNames).
			AddRow(m1.ID, m1.SnapshotID, m1.SourceKind, m1.SourceID, m1.Payload, m1.Status, m1.Attempts, m1.CreatedAt, m1.LastAttemptAt).
			AddRow(m2.ID, m2.SnapshotID, m2.SourceKind, m2.SourceID, m2.Payload, m2.Status, m2.Attempts, m2.CreatedAt, m2.LastAttemptAt)
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 10).WillReturnRows(rows)

		messages, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []*outbox.Message{m1, m2}, messages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(shared.OutboxStatusPending, 10).WillReturnError(errors.New("timeout"))

		messages, err := repo.GetPending(ctx, 10)
		assert.Nil(t, messages)
		assert.ErrorContains(t, err, "failed to get pending outbox messages")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `UPDATE reconciliation_outbox SET status = \$1, last_attempt_at = \$2 WHERE id = \$3`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(shared.OutboxStatusProcessed, pgxmock.AnyArg(), int64(5)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdateStatus(ctx, 5, shared.OutboxStatusProcessed))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(shared.OutboxStatusFailedToPublish, pgxmock.AnyArg(), int64(6)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateStatus(ctx, 6, shared.OutboxStatusFailedToPublish)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{ID: 6})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_IncrementAttempts(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `UPDATE reconciliation_outbox SET attempts = attempts \+ 1, last_attempt_at = \$1 WHERE id = \$2`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(pgxmock.AnyArg(), int64(3)).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.IncrementAttempts(ctx, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("connection lost")
		mock.ExpectExec(query).WithArgs(pgxmock.AnyArg(), int64(3)).WillReturnError(dbErr)

		err := repo.IncrementAttempts(ctx, 3)
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOutboxRepository_GetBySnapshotID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &OutboxRepository{querier: mock, logger: newTestLogger()}
	query := `SELECT (.+) FROM reconciliation_outbox WHERE snapshot_id = \$1`

	t.Run("found", func(t *testing.T) {
		m := testOutboxMessage()
		m.ID = 9
		attempted := time.Now()
		m.LastAttemptAt = &attempted
		mock.ExpectQuery(query).WithArgs(m.SnapshotID).WillReturnRows(pgxmock.NewRows(outboxColumnNames).
			AddRow(m.ID, m.SnapshotID, m.SourceKind, m.SourceID, m.Payload, m.Status, m.Attempts, m.CreatedAt, m.LastAttemptAt))

		got, err := repo.GetBySnapshotID(ctx, m.SnapshotID)
		require.NoError(t, err)
		assert.Equal(t, m, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetBySnapshotID(ctx, id)
		assert.ErrorIs(t, err, outbox.ErrMessageNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
