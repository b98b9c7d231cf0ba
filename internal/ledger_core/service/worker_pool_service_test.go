package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"log/slog"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockMutationProcessor struct {
	mock.Mock
}

func (m *MockMutationProcessor) ProcessMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func testMutationEvent() *shared.LedgerMutationEvent {
	return &shared.LedgerMutationEvent{
		EventID:       uuid.New(),
		Source:        shared.CardSource(uuid.New()),
		Reason:        "import",
		CorrelationID: "corr1",
		Timestamp:     time.Now().UTC(),
	}
}

func TestWorkerPoolMutationProcessor_ProcessMutation(t *testing.T) {
	logger := slog.Default()
	event := testMutationEvent()

	tests := []struct {
		name          string
		setupMocks    func(m *MockMutationProcessor)
		expectedError error
	}{
		{
			name: "successful processing",
			setupMocks: func(m *MockMutationProcessor) {
				m.On("ProcessMutation", mock.Anything, event).Return(nil).Once()
			},
		},
		{
			name: "processing error",
			setupMocks: func(m *MockMutationProcessor) {
				m.On("ProcessMutation", mock.Anything, event).Return(errors.New("processing error")).Once()
			},
			expectedError: errors.New("processing error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &MockMutationProcessor{}
			tt.setupMocks(base)

			processor, err := NewWorkerPoolMutationProcessor(base, WorkerPoolConfig{Size: 2}, logger)
			require.NoError(t, err)
			defer processor.Shutdown()

			err = processor.ProcessMutation(context.Background(), event)
			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			base.AssertExpectations(t)
		})
	}
}

type countingProcessor struct {
	inFlight int32
	peak     int32
	done     int32
}

func (p *countingProcessor) ProcessMutation(ctx context.Context, event *shared.LedgerMutationEvent) error {
	n := atomic.AddInt32(&p.inFlight, 1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&p.inFlight, -1)
	atomic.AddInt32(&p.done, 1)
	return nil
}

func TestWorkerPoolMutationProcessor_ConcurrentProcessing(t *testing.T) {
	base := &countingProcessor{}
	processor, err := NewWorkerPoolMutationProcessor(base, WorkerPoolConfig{Size: 3}, slog.Default())
	require.NoError(t, err)
	defer processor.Shutdown()

	assert.Equal(t, 3, processor.Capacity())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, processor.ProcessMutation(context.Background(), testMutationEvent()))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&base.done))
	assert.LessOrEqual(t, atomic.LoadInt32(&base.peak), int32(3))
}

func TestWorkerPoolMutationProcessor_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	base := &MockMutationProcessor{}
	base.On("ProcessMutation", mock.Anything, mock.Anything).Run(func(mock.Arguments) { <-block }).Return(nil)

	processor, err := NewWorkerPoolMutationProcessor(base, WorkerPoolConfig{Size: 1}, slog.Default())
	require.NoError(t, err)
	defer processor.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = processor.ProcessMutation(ctx, testMutationEvent())
	close(block)
	assert.ErrorIs(t, err, context.Canceled)
}
