package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
)

// JournalPublisher moves one outbox message into the reconciliation journal
type JournalPublisher interface {
	PublishToJournal(ctx context.Context, message *outbox.Message) error
}

// ErrUnreadablePayload marks messages that can never be published
var ErrUnreadablePayload = errors.New("unreadable outbox payload")

type JournalPublisherImpl struct {
	outboxRepo  outbox.Repository
	journalRepo reconciliation.JournalRepository
	logger      *slog.Logger
}

func NewJournalPublisher(
	outboxRepo outbox.Repository,
	journalRepo reconciliation.JournalRepository,
	logger *slog.Logger,
) JournalPublisher {
	return &JournalPublisherImpl{
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// PublishToJournal appends the snapshot and marks the message processed.
// Append is idempotent on the snapshot id, so a crash between the two steps
// only causes a harmless second append.
func (p *JournalPublisherImpl) PublishToJournal(ctx context.Context, message *outbox.Message) error {
	snapshot, err := message.GetSnapshot()
	if err != nil {
		p.logger.Error("Failed to unmarshal snapshot from outbox payload",
			"outbox_id", message.ID, "snapshot_id", message.SnapshotID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error",
				"outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("%w: outbox %d: %v", ErrUnreadablePayload, message.ID, err)
	}

	logger := p.logger
	if snapshot.CorrelationID != "" {
		logger = p.logger.With("correlation_id", snapshot.CorrelationID)
	}

	if err := p.journalRepo.Append(ctx, snapshot); err != nil {
		logger.Error("Failed to append snapshot to reconciliation journal",
			"snapshot_id", snapshot.ID.String(), "error", err)
		return fmt.Errorf("failed to append snapshot %s: %w", snapshot.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "snapshot_id", snapshot.ID.String(), "error", err,
		)
		return fmt.Errorf("journal write for %s OK, but failed to mark outbox %d as PROCESSED: %w", snapshot.ID, message.ID, err)
	}

	logger.Info("Snapshot published to reconciliation journal",
		"outbox_id", message.ID,
		"snapshot_id", snapshot.ID.String(),
		"funding_source", snapshot.Source.String(),
		"trigger", snapshot.Trigger,
	)
	return nil
}
