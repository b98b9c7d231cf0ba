package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/jackc/pgx/v5"
)

type AuditRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewAuditRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.AuditRecorder {
	return &AuditRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record writes the snapshot to the outbox inside tx so it commits together
// with the cache update it describes
func (r *AuditRecorderImpl) Record(ctx context.Context, tx pgx.Tx, snapshot *reconciliation.Snapshot) error {
	logger := r.logger
	if snapshot.CorrelationID != "" {
		logger = r.logger.With("correlation_id", snapshot.CorrelationID)
	}

	message, err := outbox.NewMessage(snapshot)
	if err != nil {
		logger.Error("Failed to create outbox message (marshal payload)",
			"snapshot_id", snapshot.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox payload for snapshot %s: %w", snapshot.ID.String(), err)
	}

	if err = r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"snapshot_id", snapshot.ID.String(),
			"funding_source", snapshot.Source.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for snapshot %s: %w", snapshot.ID.String(), err)
	}
	logger.Info("Reconciliation snapshot queued",
		"snapshot_id", snapshot.ID.String(),
		"outbox_id", message.ID,
		"trigger", snapshot.Trigger,
		"drift", snapshot.Drift.StringFixed(2),
	)

	return nil
}
