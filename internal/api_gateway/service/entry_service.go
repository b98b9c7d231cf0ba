package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/shared"
	core "github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/google/uuid"
)

// EntryServiceImpl implements the EntryService interface
type EntryServiceImpl struct {
	lifecycle core.LifecycleService
	logger    *slog.Logger
}

// NewEntryService creates a new entry service
func NewEntryService(logger *slog.Logger, lifecycle core.LifecycleService) EntryService {
	return &EntryServiceImpl{
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (s *EntryServiceImpl) SetStatus(ctx context.Context, entryID uuid.UUID, status shared.EntryStatus) (*ledger.Entry, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown entry status %q", shared.ErrInvalidArgument, status)
	}
	return s.lifecycle.SetEntryStatus(ctx, entryID, status)
}

// Import hands the batch to the core, which runs it in one transaction
func (s *EntryServiceImpl) Import(ctx context.Context, entries []*ledger.Entry) (*core.ImportResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one entry is required", shared.ErrInvalidArgument)
	}

	result, err := s.lifecycle.ImportEntries(ctx, entries)
	if err != nil {
		return nil, err
	}

	if len(result.Skipped) > 0 {
		s.logger.Info("Skipped entries with known idempotency keys",
			"skipped", len(result.Skipped),
			"correlation_id", shared.CorrelationID(ctx),
		)
	}
	return result, nil
}
