package service

import (
	"context"
	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolMutationProcessor runs mutation events on a bounded ants pool.
// Each event still gets its own transaction in the wrapped processor.
type WorkerPoolMutationProcessor struct {
	base   MutationProcessor
	pool   *ants.Pool
	logger *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolMutationProcessor(
	base MutationProcessor,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolMutationProcessor, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolMutationProcessor{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// ProcessMutation submits the event to the pool and waits for its result, so
// the consumer only commits the offset once the refresh is done.
func (s *WorkerPoolMutationProcessor) ProcessMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Debug("Submitting ledger mutation to worker pool",
		"event_id", event.EventID.String(),
		"funding_source", event.Source.String(),
	)

	resultChan := make(chan error, 1)
	eventCopy := *event

	err := s.pool.Submit(func() {
		resultChan <- s.base.ProcessMutation(ctx, &eventCopy)
	})
	if err != nil {
		logger.Error("Failed to submit ledger mutation to worker pool",
			"event_id", event.EventID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolMutationProcessor) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolMutationProcessor) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolMutationProcessor) Capacity() int {
	return s.pool.Cap()
}
