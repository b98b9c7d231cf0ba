// Command recalculate recomputes cached account balances and card used limits
// from the ledger and reports any drift.
//
//	recalculate --account <uuid> [--dry-run]
//	recalculate --card <uuid> [--dry-run]
//	recalculate --all [--dry-run]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/fincontrol-ledger/internal/data/mongo"
	"github.com/fincontrol-ledger/internal/data/postgres"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/components"
	"github.com/fincontrol-ledger/internal/ledger_core/outbox_poller"
	"github.com/fincontrol-ledger/internal/ledger_core/sweep"
	"github.com/fincontrol-ledger/internal/logger"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

type options struct {
	accountID  string
	cardID     string
	all        bool
	dryRun     bool
	configName string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("recalculate", pflag.ContinueOnError)
	fs.StringVar(&opts.accountID, "account", "", "recalculate the balance of one account")
	fs.StringVar(&opts.cardID, "card", "", "recalculate the used limit of one card")
	fs.BoolVar(&opts.all, "all", false, "recalculate every account and card")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "report drift without correcting anything")
	fs.StringVar(&opts.configName, "config", "recalculate", "config file base name (<name>.env)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	targets := 0
	for _, set := range []bool{opts.accountID != "", opts.cardID != "", opts.all} {
		if set {
			targets++
		}
	}
	if targets != 1 {
		return nil, errors.New("exactly one of --account, --card or --all is required")
	}
	return opts, nil
}

// source returns the single funding source selected by the flags
func (o *options) source() (shared.FundingSource, error) {
	raw, kind := o.accountID, shared.SourceKindAccount
	if o.cardID != "" {
		raw, kind = o.cardID, shared.SourceKindCard
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return shared.FundingSource{}, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return shared.FundingSource{Kind: kind, ID: id}, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "recalculate: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "recalculate: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.LoadConfig(opts.configName)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.NewLogger(cfg).With("component", "recalculate")

	postgresDB, err := persistence.NewPostgresDB(ctx, log, &cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer postgresDB.Close()

	repos := components.Repositories{
		Plans:    postgres.NewPlanRepository(log, postgresDB),
		Ledger:   postgres.NewLedgerRepository(log, postgresDB),
		Accounts: postgres.NewAccountRepository(log, postgresDB),
		Cards:    postgres.NewCardRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
	}
	lifecycle := components.CreateLifecycleService(postgresDB, repos, shared.SystemClock{}, log)
	driftSweep := sweep.NewDriftSweep(repos.Accounts, repos.Cards, lifecycle, cfg.Reconciliation.SweepBatchSize, log)

	// snapshots only reach the journal when caches are actually corrected
	var outbox drainer
	if !opts.dryRun {
		mongoDB, err := persistence.NewMongoDB(ctx, log, &cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("failed to initialize MongoDB: %w", err)
		}
		defer func() {
			if err := mongoDB.Close(context.Background()); err != nil {
				log.Error("Error closing MongoDB connection", "error", err)
			}
		}()

		journalRepo := mongo.NewJournalRepository(log, mongoDB.Database(), cfg.MongoDB.JournalCollection)
		publisher := outbox_poller.NewJournalPublisher(repos.Outbox, journalRepo, log)
		outbox = outbox_poller.NewPoller(&cfg.Outbox, repos.Outbox, publisher, log)
	}

	r := newRunner(lifecycle, repos.Accounts, repos.Cards, driftSweep, outbox, opts.dryRun, os.Stdout, log)
	if opts.all {
		return r.All(ctx)
	}

	src, err := opts.source()
	if err != nil {
		return err
	}
	return r.One(ctx, src)
}
