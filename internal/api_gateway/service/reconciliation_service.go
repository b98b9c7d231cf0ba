package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/fincontrol-ledger/internal/platform/messaging/producers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	lifecycle core.LifecycleService
	producer  producers.MutationPublisher
	journal   reconciliation.JournalRepository
	logger    *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	logger *slog.Logger,
	lifecycle core.LifecycleService,
	producer producers.MutationPublisher,
	journal reconciliation.JournalRepository,
) ReconciliationService {
	return &ReconciliationServiceImpl{
		lifecycle: lifecycle,
		producer:  producer,
		journal:   journal,
		logger:    logger,
	}
}

// AccountBalance derives the balance from the ledger without touching the cache
func (s *ReconciliationServiceImpl) AccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.lifecycle.RecalculateAccountBalance(ctx, accountID)
}

// CardUsedLimit derives the used limit from the ledger without touching the cache
func (s *ReconciliationServiceImpl) CardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error) {
	return s.lifecycle.RecalculateCardUsedLimit(ctx, cardID)
}

// RequestReconciliation publishes a ledger mutation event for the worker to apply
func (s *ReconciliationServiceImpl) RequestReconciliation(ctx context.Context, src shared.FundingSource, reason string) (*shared.LedgerMutationEvent, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = reconciliation.TriggerManual
	}

	event := &shared.LedgerMutationEvent{
		EventID:       uuid.New(),
		Source:        src,
		Reason:        reason,
		CorrelationID: shared.CorrelationID(ctx),
		Timestamp:     time.Now().UTC(),
	}

	if err := s.producer.PublishMutation(ctx, event); err != nil {
		s.logger.Error("Failed to publish ledger mutation",
			"funding_source", src.String(),
			"reason", reason,
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Ledger mutation published",
		"event_id", event.EventID,
		"funding_source", src.String(),
		"reason", reason,
		"correlation_id", event.CorrelationID,
	)
	return event, nil
}

// History retrieves a page of reconciliation snapshots for a funding source
func (s *ReconciliationServiceImpl) History(ctx context.Context, src shared.FundingSource, page, perPage int) ([]*reconciliation.Snapshot, int64, error) {
	if err := src.Validate(); err != nil {
		return nil, 0, err
	}
	if page < 1 || perPage < 1 {
		return nil, 0, fmt.Errorf("%w: page and per_page must be positive", shared.ErrInvalidArgument)
	}
	offset := (page - 1) * perPage

	snapshots, err := s.journal.ListBySource(ctx, src, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.journal.CountBySource(ctx, src)
	if err != nil {
		return nil, 0, err
	}

	return snapshots, total, nil
}
