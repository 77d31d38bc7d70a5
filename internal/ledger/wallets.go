package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/domain/wallet"
)

// DefaultLimits returns the configured limits for new wallets
func (e *Engine) DefaultLimits() wallet.Limits {
	return wallet.Limits{
		DailyWithdrawal:   e.cfg.DefaultDailyWithdrawal,
		MonthlyWithdrawal: e.cfg.DefaultMonthlyWithdrawal,
		MaxBalance:        e.cfg.DefaultMaxBalance,
		MinWithdrawal:     e.cfg.DefaultMinWithdrawal,
	}
}

// CreateWallet opens an active, empty wallet for userID. A nil limits uses the
// configured defaults. Fails AlreadyExists while the user has an open wallet.
func (e *Engine) CreateWallet(ctx context.Context, userID string, currency money.Currency, limits *wallet.Limits) (*wallet.Wallet, error) {
	const op = "create_wallet"
	start := time.Now()
	logger := e.opLogger(op, "").With("user_id", userID)

	l := e.DefaultLimits()
	if limits != nil {
		l = *limits
	}
	w, err := wallet.NewWallet(userID, currency, l, e.now().UTC())
	if err != nil {
		e.finish(logger, op, start, err)
		return nil, err
	}

	release, err := e.acquire(ctx, "user:"+w.UserID)
	if err != nil {
		e.finish(logger, op, start, err)
		return nil, err
	}
	defer release()

	err = e.store.RunInTx(ctx, func(ctx context.Context, repos storage.Repositories) error {
		if _, err := repos.Wallets.GetByUserID(ctx, w.UserID); err == nil {
			return wallet.ErrWalletAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if err := repos.Wallets.Create(ctx, w); err != nil {
			return err
		}
		return writeEvents(ctx, repos, w, w.CreatedAt, "", []pendingEvent{{eventType: outbox.EventWalletCreated}})
	})
	e.finish(logger.With("wallet_id", w.ID.String()), op, start, err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// GetWallet returns an open wallet by id
func (e *Engine) GetWallet(ctx context.Context, walletID uuid.UUID) (*wallet.Wallet, error) {
	if w, ok := e.cache.Get(ctx, walletID); ok {
		return w, nil
	}
	w, err := e.store.Repositories().Wallets.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, w)
	return w, nil
}

// GetWalletByUserID returns the open wallet of userID
func (e *Engine) GetWalletByUserID(ctx context.Context, userID string) (*wallet.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, wallet.ErrEmptyUserID
	}
	if w, ok := e.cache.GetByUserID(ctx, userID); ok {
		return w, nil
	}
	w, err := e.store.Repositories().Wallets.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, w)
	return w, nil
}

// Freeze moves an active wallet to frozen
func (e *Engine) Freeze(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error) {
	return e.changeStatus(ctx, "freeze", walletID, reason, func(w *wallet.Wallet, _ time.Time) error {
		return w.Freeze(reason)
	})
}

// Unfreeze returns a frozen wallet to active
func (e *Engine) Unfreeze(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error) {
	return e.changeStatus(ctx, "unfreeze", walletID, reason, func(w *wallet.Wallet, _ time.Time) error {
		return w.Unfreeze()
	})
}

// Suspend moves an active wallet to suspended
func (e *Engine) Suspend(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error) {
	return e.changeStatus(ctx, "suspend", walletID, reason, func(w *wallet.Wallet, _ time.Time) error {
		return w.Suspend(reason)
	})
}

// Activate returns a suspended wallet to active
func (e *Engine) Activate(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error) {
	return e.changeStatus(ctx, "activate", walletID, reason, func(w *wallet.Wallet, _ time.Time) error {
		return w.Activate()
	})
}

// Close closes and soft-deletes the wallet. The wallet is read-only afterwards.
func (e *Engine) Close(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error) {
	return e.changeStatus(ctx, "close", walletID, reason, func(w *wallet.Wallet, now time.Time) error {
		return w.Close(reason, now)
	})
}

func (e *Engine) changeStatus(ctx context.Context, op string, walletID uuid.UUID, reason string, apply func(*wallet.Wallet, time.Time) error) (*wallet.Wallet, error) {
	return e.mutate(ctx, op, walletID, requireOpen, "", func(ctx context.Context, u *unit) error {
		from := u.wallet.Status
		if err := apply(u.wallet, u.now); err != nil {
			return err
		}
		u.emit(outbox.EventWalletStatusChanged, nil).withReason(string(from) + " -> " + string(u.wallet.Status) + reasonSuffix(reason))
		return nil
	})
}

func reasonSuffix(reason string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ""
	}
	return ": " + reason
}

// SetPin stores a salted hash of pin and clears any lockout
func (e *Engine) SetPin(ctx context.Context, walletID uuid.UUID, pin string) error {
	if err := wallet.ValidatePin(pin); err != nil {
		return err
	}
	hash, err := wallet.HashPin(pin)
	if err != nil {
		return err
	}
	_, err = e.mutate(ctx, "set_pin", walletID, requireOpen, "", func(_ context.Context, u *unit) error {
		u.wallet.SetPin(hash)
		return nil
	})
	return err
}

// VerifyPin checks pin against the stored hash. Failed attempts are persisted
// even though the call fails, so the lockout survives retries.
func (e *Engine) VerifyPin(ctx context.Context, walletID uuid.UUID, pin string) error {
	_, err := e.mutate(ctx, "verify_pin", walletID, requireOpen, "", func(_ context.Context, u *unit) error {
		err := u.wallet.VerifyPin(pin, u.now, e.cfg.PinMaxAttempts, e.cfg.PinLockDuration)
		if errors.Is(err, wallet.ErrPinNotSet) {
			return err
		}
		u.result = err
		return nil
	})
	return err
}

// CorrectBalance overwrites the balance and lifetime counters with the values
// recomputed from successful transactions and clears the discrepancy flag.
func (e *Engine) CorrectBalance(ctx context.Context, walletID uuid.UUID, note string) (*wallet.Wallet, error) {
	return e.mutate(ctx, "correct_balance", walletID, requireOpen, "", func(ctx context.Context, u *unit) error {
		totals, err := u.repos.Transactions.SumSuccessful(ctx, u.wallet.ID)
		if err != nil {
			return err
		}
		previous := u.wallet.Balance
		if err := u.wallet.Correct(totals.Net, totals.Inflow, totals.Outflow, totals.Count, u.now); err != nil {
			return err
		}

		reason := "Balance corrected from " + money.Format(previous) + " to " + money.Format(u.wallet.Balance) + reasonSuffix(note)
		u.emit(outbox.EventWalletBalanceCorrected, nil).withAmount(money.Sub(u.wallet.Balance, previous)).withReason(reason)
		return nil
	})
}

// MarkReconciled records a drift check computed from a snapshot taken at
// observedVersion. Fails Conflict if the wallet changed since the snapshot.
// The returned flag reports whether the wallet was flagged.
func (e *Engine) MarkReconciled(ctx context.Context, walletID uuid.UUID, observedVersion int, computed, tolerance decimal.Decimal) (*wallet.Wallet, bool, error) {
	var discrepant bool
	w, err := e.mutate(ctx, "mark_reconciled", walletID, requireOpen, "", func(_ context.Context, u *unit) error {
		if u.wallet.Version != observedVersion {
			return wallet.ErrConcurrentModification{WalletID: walletID, Version: observedVersion}
		}
		discrepant = u.wallet.Reconcile(computed, tolerance, u.now)
		if discrepant {
			u.emit(outbox.EventWalletFlagged, nil).withReason(u.wallet.FlagReason)
		}
		return nil
	})
	return w, discrepant, err
}
