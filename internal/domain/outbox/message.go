package outbox

import (
	"encoding/json"
	"time"

	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Message stores a reconciliation snapshot for reliable journal publishing
type Message struct {
	ID            int64               `json:"id"`
	SnapshotID    uuid.UUID           `json:"snapshot_id"`
	SourceKind    shared.SourceKind   `json:"source_kind"`
	SourceID      uuid.UUID           `json:"source_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(snapshot *reconciliation.Snapshot) (*Message, error) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	return &Message{
		SnapshotID: snapshot.ID,
		SourceKind: snapshot.Source.Kind,
		SourceID:   snapshot.Source.ID,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		Attempts:   0,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetSnapshot extracts the reconciliation snapshot from the payload
func (m *Message) GetSnapshot() (*reconciliation.Snapshot, error) {
	var snapshot reconciliation.Snapshot
	if err := json.Unmarshal(m.Payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
