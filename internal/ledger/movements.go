package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

// Credit settles an inflow and records it as a successful transaction.
// A repeated idempotency key returns the stored transaction unchanged.
func (e *Engine) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, *transaction.Transaction, error) {
	in := meta.input(amount, true)
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	var txn *transaction.Transaction
	w, err := e.mutate(ctx, "credit", walletID, requireActive, meta.CorrelationID, func(ctx context.Context, u *unit) error {
		var err error
		txn, err = e.settle(ctx, u, meta, in, false, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, txn, nil
}

// Debit settles an outflow from the available balance. Withdrawals are also
// checked against the minimum and the daily and monthly limits.
func (e *Engine) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, *transaction.Transaction, error) {
	in := meta.input(amount, false)
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	var txn *transaction.Transaction
	w, err := e.mutate(ctx, "debit", walletID, requireActive, meta.CorrelationID, func(ctx context.Context, u *unit) error {
		var err error
		txn, err = e.settle(ctx, u, meta, in, in.Category == transaction.CategoryWithdrawal, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, txn, nil
}

// settle applies a validated movement to the locked wallet and logs it.
// release, when set, drops the matching hold first.
func (e *Engine) settle(ctx context.Context, u *unit, meta MovementMeta, in transaction.Input, checkLimits bool, release func(decimal.Decimal) error) (*transaction.Transaction, error) {
	if err := meta.checkCurrency(u.wallet); err != nil {
		return nil, err
	}
	existing, err := u.replay(ctx, in, true)
	if err != nil || existing != nil {
		return existing, err
	}
	if release != nil {
		if err := release(in.Amount); err != nil {
			return nil, err
		}
	}
	if checkLimits {
		if err := e.checkWithdrawal(ctx, u, in.Amount); err != nil {
			return nil, err
		}
	}

	eventType := outbox.EventWalletCredited
	if in.IsInflow {
		err = u.wallet.Credit(in.Amount)
	} else {
		eventType = outbox.EventWalletDebited
		err = u.wallet.Debit(in.Amount)
	}
	if err != nil {
		return nil, err
	}

	txn := transaction.New(u.wallet.ID, u.wallet.UserID, u.wallet.Currency, in, transaction.StatusSuccessful, u.now)
	if err := u.repos.Transactions.Create(ctx, txn); err != nil {
		return nil, err
	}
	u.emit(eventType, txn)
	return txn, nil
}

// ReserveCredit holds an expected inflow without recording a transaction
func (e *Engine) ReserveCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return nil, err
	}
	return e.mutate(ctx, "reserve_credit", walletID, requireActive, meta.CorrelationID, func(_ context.Context, u *unit) error {
		if err := meta.checkCurrency(u.wallet); err != nil {
			return err
		}
		if err := u.wallet.ReserveCredit(amount); err != nil {
			return err
		}
		u.emit(outbox.EventWalletCreditReserved, nil).withAmount(amount)
		return nil
	})
}

// ReserveDebit holds part of the available balance. The hold is a withdrawal
// unless meta names another category, and withdrawals are limit checked here.
func (e *Engine) ReserveDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return nil, err
	}
	meta = meta.withDefaultCategory(transaction.CategoryWithdrawal)
	if !meta.Category.Valid() {
		return nil, transaction.ErrInvalidCategory
	}

	withdrawal := meta.Category == transaction.CategoryWithdrawal

	return e.mutate(ctx, "reserve_debit", walletID, requireActive, meta.CorrelationID, func(ctx context.Context, u *unit) error {
		if err := meta.checkCurrency(u.wallet); err != nil {
			return err
		}
		if withdrawal {
			if err := e.checkWithdrawal(ctx, u, amount); err != nil {
				return err
			}
		}
		if err := u.wallet.ReserveDebit(amount, withdrawal); err != nil {
			return err
		}
		u.emit(outbox.EventWalletDebitReserved, nil).withAmount(amount)
		return nil
	})
}

// ConfirmPendingCredit releases the credit hold and credits the amount
func (e *Engine) ConfirmPendingCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, *transaction.Transaction, error) {
	in := meta.input(amount, true)
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}

	var txn *transaction.Transaction
	w, err := e.mutate(ctx, "confirm_pending_credit", walletID, requireActive, meta.CorrelationID, func(ctx context.Context, u *unit) error {
		var err error
		txn, err = e.settle(ctx, u, meta, in, false, u.wallet.ReleaseCredit)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, txn, nil
}

// ConfirmPendingDebit releases the debit hold and debits the amount. The
// category picks the hold the same way ReserveDebit placed it, so a withdrawal
// confirm only consumes withdrawal holds. Limits were checked when the hold was
// placed and are not checked again.
func (e *Engine) ConfirmPendingDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, *transaction.Transaction, error) {
	meta = meta.withDefaultCategory(transaction.CategoryWithdrawal)
	in := meta.input(amount, false)
	if err := in.Validate(); err != nil {
		return nil, nil, err
	}
	withdrawal := in.Category == transaction.CategoryWithdrawal

	var txn *transaction.Transaction
	w, err := e.mutate(ctx, "confirm_pending_debit", walletID, requireActive, meta.CorrelationID, func(ctx context.Context, u *unit) error {
		var err error
		txn, err = e.settle(ctx, u, meta, in, false, func(amount decimal.Decimal) error {
			return u.wallet.ReleaseDebit(amount, withdrawal)
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return w, txn, nil
}

// ReleasePendingCredit drops a credit hold without settling it
func (e *Engine) ReleasePendingCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return nil, err
	}
	return e.mutate(ctx, "release_pending_credit", walletID, requireActive, meta.CorrelationID, func(_ context.Context, u *unit) error {
		if err := u.wallet.ReleaseCredit(amount); err != nil {
			return err
		}
		u.emit(outbox.EventWalletCreditReleased, nil).withAmount(amount)
		return nil
	})
}

// ReleasePendingDebit drops a debit hold without settling it. The category
// picks the hold as in ReserveDebit.
func (e *Engine) ReleasePendingDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta MovementMeta) (*wallet.Wallet, error) {
	amount, err := validAmount(amount)
	if err != nil {
		return nil, err
	}
	meta = meta.withDefaultCategory(transaction.CategoryWithdrawal)
	if !meta.Category.Valid() {
		return nil, transaction.ErrInvalidCategory
	}
	withdrawal := meta.Category == transaction.CategoryWithdrawal

	return e.mutate(ctx, "release_pending_debit", walletID, requireActive, meta.CorrelationID, func(_ context.Context, u *unit) error {
		if err := u.wallet.ReleaseDebit(amount, withdrawal); err != nil {
			return err
		}
		u.emit(outbox.EventWalletDebitReleased, nil).withAmount(amount)
		return nil
	})
}

// CreatePendingTransaction records a pending movement with no balance effect.
// It is settled later through UpdateTransaction. A pending withdrawal passes
// the withdrawal checks up front since it already counts against the windows.
func (e *Engine) CreatePendingTransaction(ctx context.Context, walletID uuid.UUID, in transaction.Input, correlationID string) (*transaction.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var txn *transaction.Transaction
	_, err := e.mutate(ctx, "create_pending_transaction", walletID, requireActive, correlationID, func(ctx context.Context, u *unit) error {
		existing, err := u.replay(ctx, in, false)
		if err != nil {
			return err
		}
		if existing != nil {
			txn = existing
			return nil
		}
		if !in.IsInflow && in.Category == transaction.CategoryWithdrawal {
			if err := e.checkWithdrawal(ctx, u, in.Amount); err != nil {
				return err
			}
		}

		txn = transaction.New(u.wallet.ID, u.wallet.UserID, u.wallet.Currency, in, transaction.StatusPending, u.now)
		if err := u.repos.Transactions.Create(ctx, txn); err != nil {
			return err
		}
		u.emit(outbox.EventTransactionCreated, txn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}
