package memory

import (
	"context"
	"slices"
	"time"

	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OutboxRepository struct {
	store *Store
}

var _ outbox.Repository = (*OutboxRepository)(nil)

func (r *OutboxRepository) WithTx(pgx.Tx) outbox.Repository { return r }

func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	if err := r.store.fault("outbox.Create"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	message.ID = r.store.data.nextOutboxID
	r.store.data.nextOutboxID++
	r.store.data.outbox = append(r.store.data.outbox, *message)
	return nil
}

func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	messages := []*outbox.Message{}
	for _, m := range r.store.data.outbox {
		if m.Status == shared.OutboxStatusPending {
			copied := m
			messages = append(messages, &copied)
		}
	}
	slices.SortStableFunc(messages, func(a, b *outbox.Message) int { return a.CreatedAt.Compare(b.CreatedAt) })
	if limit > 0 && len(messages) > limit {
		messages = messages[:limit]
	}
	return messages, nil
}

func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) { m.Status = status })
}

func (r *OutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) { m.Attempts++ })
}

func (r *OutboxRepository) update(id int64, apply func(m *outbox.Message)) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i := range r.store.data.outbox {
		m := &r.store.data.outbox[i]
		if m.ID == id {
			apply(m)
			now := time.Now().UTC()
			m.LastAttemptAt = &now
			return nil
		}
	}
	return outbox.ErrMessageNotFound{ID: id}
}

func (r *OutboxRepository) GetBySnapshotID(ctx context.Context, snapshotID uuid.UUID) (*outbox.Message, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, m := range r.store.data.outbox {
		if m.SnapshotID == snapshotID {
			return &m, nil
		}
	}
	return nil, outbox.ErrMessageNotFound{}
}

// JournalRepository is the in-memory reconciliation journal
type JournalRepository struct {
	store *Store
}

var _ reconciliation.JournalRepository = (*JournalRepository)(nil)

func (r *JournalRepository) Append(ctx context.Context, snapshot *reconciliation.Snapshot) error {
	if err := r.store.fault("journal.Append"); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.data.journal[snapshot.ID]; !ok {
		r.store.data.journal[snapshot.ID] = *snapshot
	}
	return nil
}

func (r *JournalRepository) GetByID(ctx context.Context, id uuid.UUID) (*reconciliation.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	s, ok := r.store.data.journal[id]
	if !ok {
		return nil, reconciliation.ErrSnapshotNotFound{SnapshotID: id}
	}
	return &s, nil
}

func (r *JournalRepository) ListBySource(ctx context.Context, src shared.FundingSource, limit, offset int) ([]*reconciliation.Snapshot, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.bySource(src)
	slices.SortFunc(all, func(a, b *reconciliation.Snapshot) int { return b.ComputedAt.Compare(a.ComputedAt) })
	if offset >= len(all) {
		return []*reconciliation.Snapshot{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *JournalRepository) CountBySource(ctx context.Context, src shared.FundingSource) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return int64(len(r.bySource(src))), nil
}

func (r *JournalRepository) bySource(src shared.FundingSource) []*reconciliation.Snapshot {
	out := []*reconciliation.Snapshot{}
	for _, s := range r.store.data.journal {
		if s.Source == src {
			copied := s
			out = append(out, &copied)
		}
	}
	return out
}
