// Package memory keeps every repository of the ledger in process memory. It
// backs the core's property tests and local experiments; the transaction
// runner restores the previous state when a unit of work fails, so rollback
// behaviour matches PostgreSQL.
package memory

import (
	"bytes"
	"context"
	"slices"
	"sync"

	"github.com/fincontrol-ledger/internal/domain/account"
	"github.com/fincontrol-ledger/internal/domain/card"
	"github.com/fincontrol-ledger/internal/domain/ledger"
	"github.com/fincontrol-ledger/internal/domain/outbox"
	"github.com/fincontrol-ledger/internal/domain/plan"
	"github.com/fincontrol-ledger/internal/domain/reconciliation"
	"github.com/fincontrol-ledger/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type state struct {
	plans        map[uuid.UUID]plan.InstallmentPlan
	entries      map[uuid.UUID]ledger.Entry
	accounts     map[uuid.UUID]account.Account
	cards        map[uuid.UUID]card.Card
	outbox       []outbox.Message
	nextOutboxID int64
	journal      map[uuid.UUID]reconciliation.Snapshot
}

func newState() state {
	return state{
		plans:        make(map[uuid.UUID]plan.InstallmentPlan),
		entries:      make(map[uuid.UUID]ledger.Entry),
		accounts:     make(map[uuid.UUID]account.Account),
		cards:        make(map[uuid.UUID]card.Card),
		nextOutboxID: 1,
		journal:      make(map[uuid.UUID]reconciliation.Snapshot),
	}
}

func (s state) clone() state {
	c := state{
		plans:        make(map[uuid.UUID]plan.InstallmentPlan, len(s.plans)),
		entries:      make(map[uuid.UUID]ledger.Entry, len(s.entries)),
		accounts:     make(map[uuid.UUID]account.Account, len(s.accounts)),
		cards:        make(map[uuid.UUID]card.Card, len(s.cards)),
		outbox:       slices.Clone(s.outbox),
		nextOutboxID: s.nextOutboxID,
		journal:      make(map[uuid.UUID]reconciliation.Snapshot, len(s.journal)),
	}
	for k, v := range s.plans {
		c.plans[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.journal {
		c.journal[k] = v
	}
	return c
}

// Store holds the in-memory tables. The zero value is not usable; call NewStore.
type Store struct {
	txMu sync.Mutex // serializes units of work like row locks would
	mu   sync.RWMutex
	data state

	faultMu sync.Mutex
	faults  map[string]error
}

var _ persistence.TxRunner = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		data:   newState(),
		faults: make(map[string]error),
	}
}

// ExecuteTx runs fn with exclusive access to the store. A returned error or a
// panic restores the state captured before fn started. The pgx.Tx handed to
// fn is always nil; memory repositories ignore it in WithTx.
func (s *Store) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	saved := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(saved)
			panic(p)
		}
		if err != nil {
			s.restore(saved)
		}
	}()

	return fn(nil)
}

func (s *Store) restore(saved state) {
	s.mu.Lock()
	s.data = saved
	s.mu.Unlock()
}

// FailOn makes the named operation (for example "ledger.Insert") return err
// until ClearFaults is called.
func (s *Store) FailOn(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearFaults removes every injected failure
func (s *Store) ClearFaults() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}

// Plans returns the plan repository view of the store
func (s *Store) Plans() *PlanRepository { return &PlanRepository{store: s} }

// Ledger returns the ledger entry repository view of the store
func (s *Store) Ledger() *LedgerRepository { return &LedgerRepository{store: s} }

// Accounts returns the account repository view of the store
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{store: s} }

// Cards returns the card repository view of the store
func (s *Store) Cards() *CardRepository { return &CardRepository{store: s} }

// Outbox returns the outbox repository view of the store
func (s *Store) Outbox() *OutboxRepository { return &OutboxRepository{store: s} }

// Journal returns the reconciliation journal view of the store
func (s *Store) Journal() *JournalRepository { return &JournalRepository{store: s} }

func sortedIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return ids
}

func page(ids []uuid.UUID, limit, offset int) []uuid.UUID {
	if offset >= len(ids) {
		return []uuid.UUID{}
	}
	end := len(ids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return ids[offset:end]
}
