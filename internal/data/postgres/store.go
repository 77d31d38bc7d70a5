package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/platform/persistence"
)

// Store implements storage.Store on a PostgreSQL pool. Units of work run at
// read committed; the wallet row lock taken by LockForUpdate serializes
// writers across processes and lock_timeout bounds the wait for it.
type Store struct {
	db           persistence.TxBeginner
	logger       *slog.Logger
	lockTimeout  time.Duration
	wallets      *WalletRepository
	transactions *TransactionRepository
	outbox       *OutboxRepository
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a store over db. A zero lockTimeout leaves the server default.
func NewStore(logger *slog.Logger, db persistence.TxBeginner, lockTimeout time.Duration) *Store {
	return &Store{
		db:           db,
		logger:       logger,
		lockTimeout:  lockTimeout,
		wallets:      NewWalletRepository(logger, db),
		transactions: NewTransactionRepository(logger, db),
		outbox:       NewOutboxRepository(logger, db),
	}
}

// Repositories returns pool-backed repositories for reads outside a unit of work
func (s *Store) Repositories() storage.Repositories {
	return storage.Repositories{
		Wallets:      s.wallets,
		Transactions: s.transactions,
		Outbox:       s.outbox,
	}
}

// RunInTx runs fn in a read committed transaction
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	err := persistence.ExecuteTx(ctx, s.db, opts, func(tx pgx.Tx) error {
		if s.lockTimeout > 0 {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := tx.Exec(ctx, stmt); err != nil {
				s.logger.Error("Failed to set lock timeout", "error", err)
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		return fn(ctx, s.withTx(tx))
	})
	return classify(err)
}

// ReadSnapshot runs fn in a repeatable read, read-only transaction so every
// query sees the same snapshot without taking row locks.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, repos storage.Repositories) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := persistence.ExecuteTx(ctx, s.db, opts, func(tx pgx.Tx) error {
		return fn(ctx, s.withTx(tx))
	})
	return classify(err)
}

func (s *Store) withTx(tx pgx.Tx) storage.Repositories {
	return storage.Repositories{
		Wallets:      s.wallets.WithTx(tx),
		Transactions: s.transactions.WithTx(tx),
		Outbox:       s.outbox.WithTx(tx),
	}
}
