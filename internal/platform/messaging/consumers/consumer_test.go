package consumers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fincontrol-ledger/internal/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedReader replays a fixed list of fetch results, then blocks until ctx is done
type scriptedReader struct {
	mu        sync.Mutex
	fetches   []fetchResult
	committed []kafka.Message
	closed    bool
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.fetches) > 0 {
		next := r.fetches[0]
		r.fetches = r.fetches[1:]
		r.mu.Unlock()
		return next.msg, next.err
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func (r *scriptedReader) commits() []kafka.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]kafka.Message(nil), r.committed...)
}

func TestNewKafkaConsumer(t *testing.T) {
	cfg := &config.KafkaConfig{
		Brokers:           "localhost:9092",
		LedgerEventsTopic: "ledger_mutations",
		ConsumerGroup:     "ledger-worker-group",
		MinBytes:          1024,
		MaxBytes:          10240,
		MaxWait:           time.Second,
	}

	consumer := NewKafkaConsumer(context.Background(), testLogger(), cfg)
	require.NotNil(t, consumer)
	require.NotNil(t, consumer.reader)
	assert.Equal(t, "ledger_mutations", consumer.topic)
	assert.Equal(t, "ledger-worker-group", consumer.groupID)
	assert.NoError(t, consumer.Close())
}

func TestKafkaConsumer_RetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &scriptedReader{fetches: []fetchResult{
		{msg: kafka.Message{Key: []byte("ok-1"), Offset: 0}},
		{err: errors.New("broker unavailable")},
		{msg: kafka.Message{Key: []byte("flaky"), Offset: 1}},
		{msg: kafka.Message{Key: []byte("ok-2"), Offset: 2}},
	}}
	consumer := &KafkaConsumer{
		reader:        reader,
		topic:         "t",
		groupID:       "g",
		retryDelay:    time.Millisecond,
		maxRetryDelay: 2 * time.Millisecond,
		logger:        testLogger(),
	}

	var mu sync.Mutex
	var handled []string
	flakyFailures := 2
	handler := func(ctx context.Context, key, value []byte) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, string(key))
		if string(key) == "flaky" && flakyFailures > 0 {
			flakyFailures--
			return errors.New("db connection reset")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		consumer.consume(ctx, handler)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	var offsets []int64
	for _, m := range reader.commits() {
		offsets = append(offsets, m.Offset)
	}
	assert.Equal(t, []int64{0, 1, 2}, offsets, "no offset is committed past a failed message")

	mu.Lock()
	assert.Equal(t, []string{"ok-1", "flaky", "flaky", "flaky", "ok-2"}, handled)
	mu.Unlock()
}

func TestKafkaConsumer_StopsRetryingWhenContextEnds(t *testing.T) {
	reader := &scriptedReader{fetches: []fetchResult{
		{msg: kafka.Message{Key: []byte("broken"), Offset: 7}},
		{msg: kafka.Message{Key: []byte("later"), Offset: 8}},
	}}
	consumer := &KafkaConsumer{reader: reader, topic: "t", groupID: "g", retryDelay: time.Millisecond, logger: testLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	handler := func(ctx context.Context, key, value []byte) error {
		if string(key) == "later" {
			t.Error("message after a failing one must not be handled")
		}
		if atomic.AddInt32(&calls, 1) == 3 {
			cancel()
		}
		return errors.New("still failing")
	}

	done := make(chan struct{})
	go func() {
		consumer.consume(ctx, handler)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.Empty(t, reader.commits())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestKafkaConsumer_Close(t *testing.T) {
	t.Run("CloseWithNilReader", func(t *testing.T) {
		consumer := &KafkaConsumer{logger: testLogger()}
		require.NoError(t, consumer.Close())
	})

	t.Run("ClosesReader", func(t *testing.T) {
		reader := &scriptedReader{}
		consumer := &KafkaConsumer{reader: reader, logger: testLogger()}
		require.NoError(t, consumer.Close())
		assert.True(t, reader.closed)
	})
}
