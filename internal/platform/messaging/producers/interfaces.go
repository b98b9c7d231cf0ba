package producers

import (
	"context"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/segmentio/kafka-go"
)

// MutationPublisher enqueues ledger mutation events for the ledger worker
type MutationPublisher interface {
	PublishMutation(ctx context.Context, event *shared.LedgerMutationEvent) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// topicAdmin is the part of *kafka.Conn used to make sure a topic exists
type topicAdmin interface {
	ReadPartitions(topics ...string) ([]kafka.Partition, error)
	CreateTopics(topics ...kafka.TopicConfig) error
}
