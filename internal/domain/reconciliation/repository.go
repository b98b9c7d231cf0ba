package reconciliation

import (
	"context"

	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// JournalRepository stores published snapshots for audit
type JournalRepository interface {
	// Append is idempotent on snapshot id
	Append(ctx context.Context, snapshot *Snapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	ListBySource(ctx context.Context, src shared.FundingSource, limit, offset int) ([]*Snapshot, error)
	CountBySource(ctx context.Context, src shared.FundingSource) (int64, error)
}

// ErrSnapshotNotFound indicates a missing journal record
type ErrSnapshotNotFound struct {
	SnapshotID uuid.UUID
}

func (e ErrSnapshotNotFound) Error() string {
	return "reconciliation snapshot not found: " + e.SnapshotID.String()
}

// Is implements the errors.Is interface for ErrSnapshotNotFound
func (e ErrSnapshotNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrSnapshotNotFound)
	if !ok {
		return false
	}
	return t.SnapshotID == uuid.Nil || t.SnapshotID == e.SnapshotID
}
