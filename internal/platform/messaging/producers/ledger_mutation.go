package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// LedgerMutationProducer writes LedgerMutationEvents keyed by funding source
// id, so every event of one account or card lands on the same partition.
type LedgerMutationProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ MutationPublisher = (*LedgerMutationProducer)(nil)

func NewLedgerMutationProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LedgerMutationProducer, error) {
	if cfg.LedgerEventsTopic == "" {
		return nil, fmt.Errorf("kafka ledger events topic is not configured")
	}

	if err := dialAndEnsureTopic(cfg.Brokers, cfg.LedgerEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger events topic %s exists: %w", cfg.LedgerEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.LedgerEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &LedgerMutationProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LedgerEventsTopic,
	}, nil
}

// PublishMutation fills in the event id and timestamp when missing and writes
// the event synchronously
func (p *LedgerMutationProducer) PublishMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	if err := event.Source.Validate(); err != nil {
		return err
	}
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = shared.CorrelationID(ctx)
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger mutation event: %w", err)
	}

	key := event.Source.ID.String()
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "source-kind", Value: []byte(event.Source.Kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish ledger mutation event",
			"topic", p.topic,
			"event_id", event.EventID.String(),
			"funding_source", event.Source.String(),
			"error", err,
		)
		return fmt.Errorf("failed to publish ledger mutation event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published ledger mutation event",
		"topic", p.topic,
		"event_id", event.EventID.String(),
		"funding_source", event.Source.String(),
	)
	return nil
}

func (p *LedgerMutationProducer) Close() error {
	p.logger.Info("Closing ledger mutation producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
