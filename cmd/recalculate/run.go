package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/sweep"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// recalculator is the part of the lifecycle service the CLI drives
type recalculator interface {
	OnLedgerMutated(ctx context.Context, src shared.FundingSource, trigger string) (*reconciliation.Snapshot, error)
	RecalculateAccountBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	RecalculateCardUsedLimit(ctx context.Context, cardID uuid.UUID) (decimal.Decimal, error)
}

type drainer interface {
	Drain(ctx context.Context) (int, error)
}

// runner recomputes cached values and prints one row per funding source.
// In dry-run mode it only reads.
type runner struct {
	core     recalculator
	accounts account.Repository
	cards    card.Repository
	sweep    *sweep.DriftSweep
	outbox   drainer // nil in dry-run mode
	dryRun   bool
	logger   *slog.Logger

	table   *tabwriter.Writer
	checked int
	drifted int
	failed  int
}

func newRunner(core recalculator, accounts account.Repository, cards card.Repository, driftSweep *sweep.DriftSweep, outbox drainer, dryRun bool, out io.Writer, logger *slog.Logger) *runner {
	return &runner{
		core:     core,
		accounts: accounts,
		cards:    cards,
		sweep:    driftSweep,
		outbox:   outbox,
		dryRun:   dryRun,
		logger:   logger,
		table:    tabwriter.NewWriter(out, 0, 4, 2, ' ', 0),
	}
}

// One recomputes a single account or card
func (r *runner) One(ctx context.Context, src shared.FundingSource) error {
	r.header()
	err := r.visit(ctx, src)
	return r.finish(ctx, err)
}

// All recomputes every account, then every card
func (r *runner) All(ctx context.Context) error {
	r.header()

	var err error
	if r.dryRun {
		err = r.sweep.ForEachSource(ctx, func(src shared.FundingSource) error {
			if visitErr := r.visit(ctx, src); visitErr != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	} else {
		_, err = r.sweep.Sweep(ctx, reconciliation.TriggerManual, sweep.Visitor{
			Refreshed: func(s *reconciliation.Snapshot) { r.row(s.Source, s.Previous, s.Recomputed) },
			Failed:    r.failure,
		})
	}
	return r.finish(ctx, err)
}

func (r *runner) visit(ctx context.Context, src shared.FundingSource) error {
	if r.dryRun {
		previous, recomputed, err := r.readOnly(ctx, src)
		if err != nil {
			r.failure(src, err)
			return err
		}
		r.row(src, previous, recomputed)
		return nil
	}

	snapshot, err := r.core.OnLedgerMutated(ctx, src, reconciliation.TriggerManual)
	if err != nil {
		r.failure(src, err)
		return err
	}
	r.row(src, snapshot.Previous, snapshot.Recomputed)
	return nil
}

// readOnly returns the cached value and the value derived from the ledger
func (r *runner) readOnly(ctx context.Context, src shared.FundingSource) (decimal.Decimal, decimal.Decimal, error) {
	switch src.Kind {
	case shared.SourceKindAccount:
		acc, err := r.accounts.GetByID(ctx, src.ID)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		balance, err := r.core.RecalculateAccountBalance(ctx, src.ID)
		return acc.CachedBalance, balance, err
	case shared.SourceKindCard:
		c, err := r.cards.GetByID(ctx, src.ID)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		used, err := r.core.RecalculateCardUsedLimit(ctx, src.ID)
		return c.UsedLimit, used, err
	default:
		return decimal.Zero, decimal.Zero, src.Validate()
	}
}

func (r *runner) header() {
	fmt.Fprintln(r.table, "SOURCE\tPREVIOUS\tRECOMPUTED\tDRIFT")
}

func (r *runner) row(src shared.FundingSource, previous, recomputed decimal.Decimal) {
	r.checked++
	drift := recomputed.Sub(previous)
	if !drift.IsZero() {
		r.drifted++
	}
	fmt.Fprintf(r.table, "%s\t%s\t%s\t%s\n", src.String(),
		previous.StringFixed(shared.CurrencyPlaces),
		recomputed.StringFixed(shared.CurrencyPlaces),
		drift.StringFixed(shared.CurrencyPlaces))
}

func (r *runner) failure(src shared.FundingSource, err error) {
	r.checked++
	r.failed++
	fmt.Fprintf(r.table, "%s\t-\t-\terror: %v\n", src.String(), err)
}

func (r *runner) finish(ctx context.Context, err error) error {
	if flushErr := r.table.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}

	if r.outbox != nil && !r.dryRun {
		published, drainErr := r.outbox.Drain(ctx)
		if drainErr != nil {
			return fmt.Errorf("failed to publish reconciliation snapshots: %w", drainErr)
		}
		r.logger.Info("Reconciliation snapshots published", "count", published)
	}

	mode := "corrected"
	if r.dryRun {
		mode = "would be corrected"
	}
	r.logger.Info("Recalculation finished",
		"checked", r.checked,
		"drifted", r.drifted,
		"failed", r.failed,
		"dry_run", r.dryRun,
	)
	fmt.Fprintf(r.table, "\n%d checked, %d %s, %d failed\n", r.checked, r.drifted, mode, r.failed)
	if flushErr := r.table.Flush(); flushErr != nil {
		return flushErr
	}

	if r.failed > 0 {
		return fmt.Errorf("%d funding sources could not be recalculated", r.failed)
	}
	return nil
}
