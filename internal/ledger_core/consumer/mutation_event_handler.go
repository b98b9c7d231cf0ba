package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/fincontrol-ledger/internal/ledger_core/service"
	"github.com/fincontrol-ledger/internal/platform/messaging/producers"
)

// RetryPolicy bounds how often one event is processed before it is dead-lettered
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration // doubled after each failed attempt
}

// MutationEventHandler decodes ledger mutation events from Kafka and hands
// them to the mutation processor
type MutationEventHandler struct {
	processor service.MutationProcessor
	producer  producers.DeadLetterPublisher
	retry     RetryPolicy
	logger    *slog.Logger
}

func NewMutationEventHandler(
	logger *slog.Logger,
	processor service.MutationProcessor,
	producer producers.DeadLetterPublisher,
	retry RetryPolicy,
) *MutationEventHandler {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	return &MutationEventHandler{
		processor: processor,
		producer:  producer,
		retry:     retry,
		logger:    logger,
	}
}

// HandleMessage returns nil when the offset may be committed. Malformed
// payloads go to the DLQ. An event that still fails after RetryPolicy.MaxAttempts
// is dead-lettered too; if that is impossible the error is returned and the
// consumer handles the message again.
func (h *MutationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.LedgerMutationEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return h.deadLetter(ctx, key, value, "Failed to unmarshal ledger mutation event", err)
	}
	if err := event.Source.Validate(); err != nil {
		return h.deadLetter(ctx, key, value, "Ledger mutation event has no valid funding source", err)
	}

	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received ledger mutation event",
		"event_id", event.EventID.String(),
		"funding_source", event.Source.String(),
		"reason", event.Reason,
	)

	if err := h.process(ctx, logger, &event); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("processing ledger mutation %s interrupted: %w", event.EventID.String(), err)
		}
		reason := fmt.Sprintf("Ledger mutation failed after %d attempts", h.retry.MaxAttempts)
		return h.deadLetter(ctx, key, value, reason, err)
	}

	logger.Info("Processed ledger mutation event", "event_id", event.EventID.String())
	return nil
}

func (h *MutationEventHandler) process(ctx context.Context, logger *slog.Logger, event *shared.LedgerMutationEvent) error {
	delay := h.retry.Backoff
	var err error
	for attempt := 1; attempt <= h.retry.MaxAttempts; attempt++ {
		if err = h.processor.ProcessMutation(ctx, event); err == nil {
			return nil
		}
		logger.Error("Failed to process ledger mutation event",
			"event_id", event.EventID.String(),
			"funding_source", event.Source.String(),
			"attempt", attempt,
			"max_attempts", h.retry.MaxAttempts,
			"error", err,
		)
		if attempt == h.retry.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

func (h *MutationEventHandler) deadLetter(ctx context.Context, key, value []byte, msg string, cause error) error {
	h.logger.Error(msg, "error", cause, "message_key", string(key))

	if h.producer != nil {
		reason := fmt.Sprintf("%s: %s", msg, cause.Error())
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			return nil
		}
	}
	return fmt.Errorf("unprocessable ledger mutation message: %w", cause)
}
