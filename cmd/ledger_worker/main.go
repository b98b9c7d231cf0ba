package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/fincontrol-ledger/internal/data/mongo"
	"github.com/fincontrol-ledger/internal/data/postgres"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/components"
	"github.com/fincontrol-ledger/internal/ledger_core/consumer"
	"github.com/fincontrol-ledger/internal/ledger_core/outbox_poller"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/fincontrol-ledger/internal/ledger_core/sweep"
	"github.com/fincontrol-ledger/internal/logger"
	"github.com/fincontrol-ledger/internal/platform/messaging/consumers"
	"github.com/fincontrol-ledger/internal/platform/messaging/producers"
	"github.com/fincontrol-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := components.Repositories{
		Plans:    postgres.NewPlanRepository(log, postgresDB),
		Ledger:   postgres.NewLedgerRepository(log, postgresDB),
		Accounts: postgres.NewAccountRepository(log, postgresDB),
		Cards:    postgres.NewCardRepository(log, postgresDB),
		Outbox:   postgres.NewOutboxRepository(log, postgresDB),
	}
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database(), cfg.MongoDB.JournalCollection)
	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create reconciliation journal indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the ledger core
	lifecycle := components.CreateLifecycleService(postgresDB, repos, shared.SystemClock{}, log)
	processor := components.CreateMutationProcessor(lifecycle, log, cfg)

	mutationEventHandler := consumer.NewMutationEventHandler(
		log.With("component", "mutation_event_handler"),
		processor,
		dlqProducer,
		consumer.RetryPolicy{
			MaxAttempts: cfg.Kafka.HandlerMaxAttempts,
			Backoff:     cfg.Kafka.HandlerRetryBackoff,
		},
	)

	// Initialize outbox poller
	journalPublisher := outbox_poller.NewJournalPublisher(repos.Outbox, journalRepo, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, repos.Outbox, journalPublisher, log)

	// Initialize drift sweep scheduler
	var scheduler *sweep.Scheduler
	if cfg.Reconciliation.SweepEnabled {
		scheduler = sweep.NewScheduler(appCtx, log)
		driftSweep := sweep.NewDriftSweep(repos.Accounts, repos.Cards, lifecycle, cfg.Reconciliation.SweepBatchSize,
			log.With("component", "drift_sweep"))
		if err := scheduler.AddJob(cfg.Reconciliation.SweepSchedule, driftSweep); err != nil {
			log.Error("Failed to schedule drift sweep", "error", err)
			os.Exit(1)
		}
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.LedgerEventsTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := kafkaConsumer.Subscribe(appCtx, mutationEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	if scheduler != nil {
		scheduler.Start()
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	if scheduler != nil {
		scheduler.Stop()
	}

	// Let in-flight mutations finish before the pool is released
	if wpProcessor, ok := processor.(*service.WorkerPoolMutationProcessor); ok {
		log.Info("Shutting down worker pool", "running_workers", wpProcessor.Running())
		wpProcessor.Shutdown()
	}

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// dlqProducer is nil when no DLQ topic is configured; Close is nil-safe
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Worker shutdown completed with errors")
	} else {
		log.Info("Ledger Worker shutdown completed successfully")
	}
}
