package shared

import (
	"time"

	"github.com/google/uuid"
)

// LedgerMutationEvent defines a Kafka message asking for the cached balance or
// used limit of a funding source to be recomputed after its ledger changed.
type LedgerMutationEvent struct {
	EventID       uuid.UUID     `json:"event_id"`
	Source        FundingSource `json:"funding_source"`
	Reason        string        `json:"reason,omitempty"` // e.g. import, recurring, manual_edit
	CorrelationID string        `json:"correlation_id,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}
