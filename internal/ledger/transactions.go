package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/transaction"
)

// GetTransaction returns a transaction by id
func (e *Engine) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return e.store.Repositories().Transactions.GetByID(ctx, id)
}

// ListTransactions returns a page of a wallet's transactions, newest first,
// and the total number of matches
func (e *Engine) ListTransactions(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	if filter.WalletID == uuid.Nil {
		return nil, 0, ErrWalletIDRequired
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, transaction.ErrInvalidStatus
	}
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, 0, transaction.ErrInvalidCategory
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, ErrInvalidPage
	}
	return e.store.Repositories().Transactions.List(ctx, filter)
}

// Summarize aggregates a wallet's transactions created in [from, to)
func (e *Engine) Summarize(ctx context.Context, walletID uuid.UUID, from, to time.Time) (*transaction.Summary, error) {
	if walletID == uuid.Nil {
		return nil, ErrWalletIDRequired
	}
	if !from.Before(to) {
		return nil, ErrInvalidPeriod
	}
	rows, err := e.store.Repositories().Transactions.Summarize(ctx, walletID, from, to)
	if err != nil {
		return nil, err
	}
	return transaction.NewSummary(walletID, from, to, rows), nil
}

// UpdateTransaction applies a partial change and moves the wallet balance by
// the difference between the new and the old effect in the same unit of work.
// Changes that can move money need an active wallet; note and metadata edits
// only need it to be open.
func (e *Engine) UpdateTransaction(ctx context.Context, id uuid.UUID, update transaction.Update, correlationID string) (*transaction.Transaction, error) {
	if update.IsEmpty() {
		return nil, transaction.ErrEmptyUpdate
	}
	current, err := e.store.Repositories().Transactions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p := requireOpen
	if update.TouchesBalance() {
		p = requireActive
	}

	var updated *transaction.Transaction
	_, err = e.mutate(ctx, "update_transaction", current.WalletID, p, correlationID, func(ctx context.Context, u *unit) error {
		txn, err := u.repos.Transactions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		wasSuccessful := txn.Status == transaction.StatusSuccessful
		before := txn.Effect()
		oldAmount, wasCounted := txn.Amount, countsAsWithdrawal(txn)

		if err := txn.Apply(update, u.now); err != nil {
			return err
		}
		if err := e.checkUpdatedWithdrawal(ctx, u, txn, oldAmount, wasCounted); err != nil {
			return err
		}
		if delta := money.Sub(txn.Effect(), before); !delta.IsZero() {
			if err := u.wallet.AdjustBalance(delta); err != nil {
				return err
			}
		}
		if !wasSuccessful && txn.Status == transaction.StatusSuccessful {
			u.wallet.RecordSettlement(txn.Amount, txn.IsInflow)
		}

		if err := u.repos.Transactions.Update(ctx, txn); err != nil {
			return err
		}
		u.emit(outbox.EventTransactionUpdated, txn)
		updated = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the balance
func (e *Engine) DeleteTransaction(ctx context.Context, id uuid.UUID, correlationID string) error {
	current, err := e.store.Repositories().Transactions.GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = e.mutate(ctx, "delete_transaction", current.WalletID, requireActive, correlationID, func(ctx context.Context, u *unit) error {
		txn, err := u.repos.Transactions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if effect := txn.Effect(); !effect.IsZero() {
			if err := u.wallet.AdjustBalance(effect.Neg()); err != nil {
				return err
			}
		}
		if err := u.repos.Transactions.Delete(ctx, id); err != nil {
			return err
		}
		u.emit(outbox.EventTransactionDeleted, txn)
		return nil
	})
	return err
}
