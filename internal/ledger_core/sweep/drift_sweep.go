package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// IDLister pages through the ids of accounts or cards
type IDLister interface {
	ListIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
}

// Refresher recomputes one funding source and corrects its cache
type Refresher interface {
	OnLedgerMutated(ctx context.Context, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error)
}

// Result summarizes one pass over every funding source
type Result struct {
	Checked   int
	Corrected int
	Failed    int
}

// Visitor observes a sweep. Either callback may be nil.
type Visitor struct {
	Refreshed func(snapshot *reconciliation.Snapshot)
	Failed    func(src shared.FundingSource, err error)
}

// DriftSweep walks all accounts and cards and refreshes each of them
type DriftSweep struct {
	accounts  IDLister
	cards     IDLister
	refresher Refresher
	batchSize int
	logger    *slog.Logger
}

var _ Job = (*DriftSweep)(nil)

func NewDriftSweep(accounts, cards IDLister, refresher Refresher, batchSize int, logger *slog.Logger) *DriftSweep {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DriftSweep{
		accounts:  accounts,
		cards:     cards,
		refresher: refresher,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (s *DriftSweep) Name() string { return "reconciliation_drift_sweep" }

// Run is the scheduled entry point
func (s *DriftSweep) Run(ctx context.Context) error {
	result, err := s.Sweep(ctx, reconciliation.TriggerSweep, Visitor{})
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		return fmt.Errorf("drift sweep failed for %d of %d funding sources", result.Failed, result.Checked)
	}
	return nil
}

// Sweep refreshes every funding source with trigger and reports each outcome
// to visit. A failure on one source is logged and counted, and the sweep
// moves on.
func (s *DriftSweep) Sweep(ctx context.Context, trigger string, visit Visitor) (Result, error) {
	var result Result

	err := s.ForEachSource(ctx, func(src shared.FundingSource) error {
		result.Checked++

		snapshot, err := s.refresher.OnLedgerMutated(ctx, src, trigger)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			result.Failed++
			if errors.Is(err, shared.ErrNotFound) {
				s.logger.Warn("Funding source vanished during sweep", "funding_source", src.String())
			} else {
				s.logger.Error("Failed to refresh funding source", "funding_source", src.String(), "error", err)
			}
			if visit.Failed != nil {
				visit.Failed(src, err)
			}
			return nil
		}

		if snapshot.HasDrift() {
			result.Corrected++
		}
		if visit.Refreshed != nil {
			visit.Refreshed(snapshot)
		}
		return nil
	})

	s.logger.Info("Drift sweep finished",
		"trigger", trigger,
		"checked", result.Checked,
		"corrected", result.Corrected,
		"failed", result.Failed,
	)
	return result, err
}

// ForEachSource calls fn for every account, then every card, in id order
func (s *DriftSweep) ForEachSource(ctx context.Context, fn func(src shared.FundingSource) error) error {
	if err := s.walk(ctx, s.accounts, shared.AccountSource, fn); err != nil {
		return fmt.Errorf("failed to sweep accounts: %w", err)
	}
	if err := s.walk(ctx, s.cards, shared.CardSource, fn); err != nil {
		return fmt.Errorf("failed to sweep cards: %w", err)
	}
	return nil
}

func (s *DriftSweep) walk(ctx context.Context, lister IDLister, source func(uuid.UUID) shared.FundingSource, fn func(shared.FundingSource) error) error {
	for offset := 0; ; offset += s.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids, err := lister.ListIDs(ctx, s.batchSize, offset)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := fn(source(id)); err != nil {
				return err
			}
		}
		if len(ids) < s.batchSize {
			return nil
		}
	}
}
