package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fincontrol-ledger/internal/api_gateway"
	"github.com/fincontrol-ledger/internal/api_gateway/service"
	"github.com/fincontrol-ledger/internal/config"
	"github.com/fincontrol-ledger/internal/data/mongo"
	"github.com/fincontrol-ledger/internal/data/postgres"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/components"
	"github.com/fincontrol-ledger/internal/logger"
	"github.com/fincontrol-ledger/internal/platform/messaging/producers"
	"github.com/fincontrol-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka producer for reconciliation requests
	kafkaProducer, err := producers.NewLedgerMutationProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize ledger mutation Kafka producer", "error", err)
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

	// Plans and entries are written synchronously; the ledger worker only
	// applies queued reconciliations and publishes the journal
	lifecycle := components.CreateLifecycleService(postgresDB, repos, shared.SystemClock{}, log)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, api_gateway.Services{
		Plans:           service.NewPlanService(log, lifecycle),
		Entries:         service.NewEntryService(log, lifecycle),
		Reconciliations: service.NewReconciliationService(log, lifecycle, kafkaProducer, journalRepo),
	})
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain in-flight requests before the pool goes away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
