// Package ledger implements the wallet ledger engine. Every mutating operation
// runs as one unit of work: it takes the in-process wallet lock, opens a
// storage transaction, locks the wallet row, applies the change to the wallet
// and its transaction log, writes the outbox events and commits. Nothing of a
// rejected operation is ever persisted.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/metrics"
)

// WalletCache is the read cache in front of wallet lookups
type WalletCache interface {
	Get(ctx context.Context, id uuid.UUID) (*wallet.Wallet, bool)
	GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, bool)
	Set(ctx context.Context, w *wallet.Wallet)
	Invalidate(ctx context.Context, w *wallet.Wallet)
}

type noopCache struct{}

func (noopCache) Get(context.Context, uuid.UUID) (*wallet.Wallet, bool)      { return nil, false }
func (noopCache) GetByUserID(context.Context, string) (*wallet.Wallet, bool) { return nil, false }
func (noopCache) Set(context.Context, *wallet.Wallet)                        {}
func (noopCache) Invalidate(context.Context, *wallet.Wallet)                 {}

// Engine executes ledger operations against a storage.Store
type Engine struct {
	store  storage.Store
	locks  *KeyedLocker
	cfg    config.LedgerConfig
	cache  WalletCache
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCache puts a read cache in front of wallet lookups
func WithCache(cache WalletCache) Option {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// NewEngine creates a ledger engine
func NewEngine(store storage.Store, cfg *config.LedgerConfig, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		locks:  NewKeyedLocker(),
		cfg:    *cfg,
		cache:  noopCache{},
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// policy is the wallet status an operation needs
type policy int

const (
	requireActive policy = iota
	requireOpen
)

func (p policy) check(w *wallet.Wallet) error {
	if p == requireOpen {
		return w.EnsureOpen()
	}
	return w.EnsureActive()
}

// unit is the state of one mutating operation inside its storage transaction
type unit struct {
	wallet *wallet.Wallet
	repos  storage.Repositories
	now    time.Time
	events []pendingEvent

	// skip commits nothing, for idempotent replays
	skip bool
	// result is returned to the caller after a successful commit
	result error
}

type pendingEvent struct {
	eventType outbox.EventType
	txn       *transaction.Transaction
	amount    decimal.NullDecimal
	reason    string
}

func (u *unit) emit(eventType outbox.EventType, txn *transaction.Transaction) *pendingEvent {
	u.events = append(u.events, pendingEvent{eventType: eventType, txn: txn})
	return &u.events[len(u.events)-1]
}

func (p *pendingEvent) withAmount(amount decimal.Decimal) *pendingEvent {
	p.amount = decimal.NewNullDecimal(amount)
	return p
}

func (p *pendingEvent) withReason(reason string) *pendingEvent {
	p.reason = reason
	return p
}

// replay looks up an earlier movement recorded under the same idempotency key.
// A match marks the unit as skipped; a key reused for a different movement fails.
// When settled is set the earlier movement must also be settled, so a key held
// by a pending transaction cannot stand in for a real credit or debit.
func (u *unit) replay(ctx context.Context, in transaction.Input, settled bool) (*transaction.Transaction, error) {
	if in.IdempotencyKey == "" {
		return nil, nil
	}
	existing, err := u.repos.Transactions.GetByIdempotencyKey(ctx, u.wallet.ID, in.IdempotencyKey)
	if err != nil || existing == nil {
		return nil, err
	}
	if !existing.SameMovement(in.Amount, in.IsInflow) || (settled && !existing.Settled()) {
		return nil, transaction.ErrIdempotencyKeyReuse
	}
	u.skip = true
	return existing, nil
}

func lockKey(walletID uuid.UUID) string { return "wallet:" + walletID.String() }

func (e *Engine) acquire(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	release, err := e.locks.Acquire(ctx, key, e.cfg.LockTimeout)
	metrics.RecordLockWait(time.Since(start).Seconds())
	return release, err
}

// mutate runs fn as one unit of work on walletID and returns the committed wallet
func (e *Engine) mutate(ctx context.Context, op string, walletID uuid.UUID, p policy, correlationID string, fn func(ctx context.Context, u *unit) error) (*wallet.Wallet, error) {
	start := time.Now()
	logger := e.opLogger(op, correlationID).With("wallet_id", walletID.String())

	release, err := e.acquire(ctx, lockKey(walletID))
	if err != nil {
		e.finish(logger, op, start, err)
		return nil, err
	}
	defer release()

	var u *unit
	err = e.store.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		locked, err := repos.Wallets.LockForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		if err := p.check(locked); err != nil {
			return err
		}

		u = &unit{wallet: locked, repos: repos, now: e.now().UTC()}
		if err := fn(ctx, u); err != nil {
			return err
		}
		if u.skip {
			return nil
		}

		locked.Touch(u.now)
		if err := repos.Wallets.Update(ctx, locked); err != nil {
			return err
		}
		return writeEvents(ctx, repos, locked, u.now, correlationID, u.events)
	})
	if err != nil {
		e.finish(logger, op, start, err)
		return nil, err
	}

	if !u.skip {
		e.cache.Invalidate(ctx, u.wallet)
	}
	e.finish(logger, op, start, u.result)
	return u.wallet.Clone(), u.result
}

func writeEvents(ctx context.Context, repos storage.Repositories, w *wallet.Wallet, now time.Time, correlationID string, events []pendingEvent) error {
	for _, pe := range events {
		event := outbox.NewEvent(pe.eventType, w, pe.txn, now).WithCorrelationID(correlationID)
		event.Amount = pe.amount
		event.Reason = pe.reason

		message, err := outbox.NewMessage(event)
		if err != nil {
			return fmt.Errorf("failed to create outbox message payload for %s: %w", pe.eventType, err)
		}
		if err := repos.Outbox.Create(ctx, message); err != nil {
			return fmt.Errorf("failed to create outbox message for %s: %w", pe.eventType, err)
		}
	}
	return nil
}

func (e *Engine) opLogger(op, correlationID string) *slog.Logger {
	logger := e.logger.With("operation", op)
	if correlationID != "" {
		logger = logger.With("correlation_id", correlationID)
	}
	return logger
}

// finish records metrics and logs the outcome of an operation. Business
// rejections are warnings; anything unclassified is an error.
func (e *Engine) finish(logger *slog.Logger, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	metrics.RecordOperation(op, shared.KindName(err), elapsed.Seconds())

	switch kind := shared.KindOf(err); {
	case kind == nil:
		logger.Info("Ledger operation committed", "duration_ms", elapsed.Milliseconds())
	case kind == shared.ErrInternal:
		logger.Error("Ledger operation failed", "error", err)
	default:
		logger.Warn("Ledger operation rejected", "kind", shared.KindName(err), "error", err)
	}
}
