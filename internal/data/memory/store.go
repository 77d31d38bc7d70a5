// Package memory provides an in-process storage.Store used by engine and
// reconciliation tests and by local runs without PostgreSQL. Units of work are
// serialized by one mutex; each runs on a private copy of the state that is
// swapped in only on commit.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

type state struct {
	wallets      map[uuid.UUID]*wallet.Wallet
	transactions map[uuid.UUID]*transaction.Transaction
	outbox       []*outbox.Message
	nextOutboxID int64
}

func newState() *state {
	return &state{
		wallets:      make(map[uuid.UUID]*wallet.Wallet),
		transactions: make(map[uuid.UUID]*transaction.Transaction),
	}
}

func (s *state) clone() *state {
	c := &state{
		wallets:      make(map[uuid.UUID]*wallet.Wallet, len(s.wallets)),
		transactions: make(map[uuid.UUID]*transaction.Transaction, len(s.transactions)),
		outbox:       make([]*outbox.Message, len(s.outbox)),
		nextOutboxID: s.nextOutboxID,
	}
	for id, w := range s.wallets {
		c.wallets[id] = w.Clone()
	}
	for id, t := range s.transactions {
		c.transactions[id] = t.Clone()
	}
	for i, m := range s.outbox {
		c.outbox[i] = cloneMessage(m)
	}
	return c
}

// Store implements storage.Store in memory
type Store struct {
	mu    sync.Mutex
	state *state
}

var _ storage.Store = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{state: newState()}
}

// Repositories returns repositories where every call commits on its own
func (s *Store) Repositories() storage.Repositories {
	return repositoriesFor(func(fn func(*state) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(s.state)
	})
}

// RunInTx runs fn against a private copy of the state and publishes the copy
// only when fn returns nil.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(ctx, repositoriesFor(bound(work))); err != nil {
		return err
	}
	s.state = work
	return nil
}

// ReadSnapshot runs fn against a copy taken at call time. Writes are discarded.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, repositoriesFor(bound(snapshot)))
}

// OutboxMessages returns a copy of every stored outbox message in insertion order.
func (s *Store) OutboxMessages() []*outbox.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*outbox.Message, len(s.state.outbox))
	for i, m := range s.state.outbox {
		out[i] = cloneMessage(m)
	}
	return out
}

// Transactions returns a copy of every stored transaction of walletID.
func (s *Store) Transactions(walletID uuid.UUID) []*transaction.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*transaction.Transaction
	for _, t := range s.state.transactions {
		if t.WalletID == walletID {
			out = append(out, t.Clone())
		}
	}
	return out
}

// PutWallet stores w as is, bypassing version checks. Tests use it to seed
// drifted or otherwise hand-built wallets.
func (s *Store) PutWallet(w *wallet.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.wallets[w.ID] = w.Clone()
}

// PutTransaction stores t as is.
func (s *Store) PutTransaction(t *transaction.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transactions[t.ID] = t.Clone()
}

type runner func(fn func(*state) error) error

func bound(st *state) runner {
	return func(fn func(*state) error) error { return fn(st) }
}

func repositoriesFor(run runner) storage.Repositories {
	return storage.Repositories{
		Wallets:      &walletRepository{run: run},
		Transactions: &transactionRepository{run: run},
		Outbox:       &outboxRepository{run: run},
	}
}

func cloneMessage(m *outbox.Message) *outbox.Message {
	c := *m
	c.Payload = append([]byte(nil), m.Payload...)
	if m.LastAttemptAt != nil {
		t := *m.LastAttemptAt
		c.LastAttemptAt = &t
	}
	return &c
}
