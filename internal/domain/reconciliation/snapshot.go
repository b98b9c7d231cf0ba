package reconciliation

import (
	"time"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trigger values recorded on snapshots
const (
	TriggerMaterialize = "materialize"
	TriggerCancel      = "cancel_plan"
	TriggerMarkAllPaid = "mark_all_paid"
	TriggerEntryStatus = "entry_status"
	TriggerImport      = "import"
	TriggerMutation    = "ledger_mutation"
	TriggerSweep       = "drift_sweep"
	TriggerManual      = "manual"
)

// Snapshot records one refresh of a cached balance or used limit
type Snapshot struct {
	ID            uuid.UUID            `json:"id"`
	Source        shared.FundingSource `json:"funding_source"`
	Previous      decimal.Decimal      `json:"previous"`
	Recomputed    decimal.Decimal      `json:"recomputed"`
	Drift         decimal.Decimal      `json:"drift"` // Recomputed - Previous
	Trigger       string               `json:"trigger"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	ComputedAt    time.Time            `json:"computed_at"`
}

// NewSnapshot builds a snapshot and derives its drift
func NewSnapshot(src shared.FundingSource, previous, recomputed decimal.Decimal, trigger, correlationID string, now time.Time) *Snapshot {
	return &Snapshot{
		ID:            uuid.New(),
		Source:        src,
		Previous:      previous,
		Recomputed:    recomputed,
		Drift:         recomputed.Sub(previous),
		Trigger:       trigger,
		CorrelationID: correlationID,
		ComputedAt:    now,
	}
}

// HasDrift reports whether the cache disagreed with the ledger
func (s *Snapshot) HasDrift() bool {
	return !s.Drift.IsZero()
}
