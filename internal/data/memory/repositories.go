package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

const defaultListLimit = 50

type walletRepository struct {
	run runner
}

func (r *walletRepository) Create(_ context.Context, w *wallet.Wallet) error {
	return r.run(func(st *state) error {
		for _, existing := range st.wallets {
			if existing.UserID == w.UserID && !existing.IsDeleted {
				return wallet.ErrWalletAlreadyExists
			}
		}
		st.wallets[w.ID] = w.Clone()
		return nil
	})
}

func (r *walletRepository) GetByID(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.run(func(st *state) error {
		w, ok := st.wallets[id]
		if !ok || w.IsDeleted {
			return wallet.ErrWalletNotFound{WalletID: id}
		}
		out = w.Clone()
		return nil
	})
	return out, err
}

func (r *walletRepository) GetByUserID(_ context.Context, userID string) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.run(func(st *state) error {
		for _, w := range st.wallets {
			if w.UserID == userID && !w.IsDeleted {
				out = w.Clone()
				return nil
			}
		}
		return wallet.ErrWalletNotFound{UserID: userID}
	})
	return out, err
}

func (r *walletRepository) LockForUpdate(_ context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	var out *wallet.Wallet
	err := r.run(func(st *state) error {
		w, ok := st.wallets[id]
		if !ok {
			return wallet.ErrWalletNotFound{WalletID: id}
		}
		out = w.Clone()
		return nil
	})
	return out, err
}

func (r *walletRepository) Update(_ context.Context, w *wallet.Wallet) error {
	return r.run(func(st *state) error {
		stored, ok := st.wallets[w.ID]
		if !ok || stored.Version != w.Version-1 {
			return wallet.ErrConcurrentModification{WalletID: w.ID, Version: w.Version - 1}
		}
		st.wallets[w.ID] = w.Clone()
		return nil
	})
}

func (r *walletRepository) ListStale(_ context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	var stale []*wallet.Wallet
	err := r.run(func(st *state) error {
		for _, w := range st.wallets {
			if w.IsDeleted {
				continue
			}
			if w.LastReconciled == nil || w.LastReconciled.Before(before) {
				stale = append(stale, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stale, func(i, j int) bool {
		a, b := stale[i].LastReconciled, stale[j].LastReconciled
		switch {
		case a == nil && b == nil:
			return stale[i].ID.String() < stale[j].ID.String()
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return stale[i].ID.String() < stale[j].ID.String()
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}

	ids := make([]uuid.UUID, len(stale))
	for i, w := range stale {
		ids[i] = w.ID
	}
	return ids, nil
}

type transactionRepository struct {
	run runner
}

func (r *transactionRepository) Create(_ context.Context, txn *transaction.Transaction) error {
	return r.run(func(st *state) error {
		if txn.IdempotencyKey != "" {
			for _, existing := range st.transactions {
				if existing.WalletID == txn.WalletID && existing.IdempotencyKey == txn.IdempotencyKey {
					return transaction.ErrDuplicateIdempotencyKey
				}
			}
		}
		st.transactions[txn.ID] = txn.Clone()
		return nil
	})
}

func (r *transactionRepository) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var out *transaction.Transaction
	err := r.run(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok {
			return transaction.ErrTransactionNotFound{TransactionID: id}
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *transactionRepository) GetByIdempotencyKey(_ context.Context, walletID uuid.UUID, key string) (*transaction.Transaction, error) {
	if key == "" {
		return nil, nil
	}
	var out *transaction.Transaction
	err := r.run(func(st *state) error {
		for _, t := range st.transactions {
			if t.WalletID == walletID && t.IdempotencyKey == key {
				out = t.Clone()
				break
			}
		}
		return nil
	})
	return out, err
}

func (r *transactionRepository) Update(_ context.Context, txn *transaction.Transaction) error {
	return r.run(func(st *state) error {
		if _, ok := st.transactions[txn.ID]; !ok {
			return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
		}
		st.transactions[txn.ID] = txn.Clone()
		return nil
	})
}

func (r *transactionRepository) Delete(_ context.Context, id uuid.UUID) error {
	return r.run(func(st *state) error {
		if _, ok := st.transactions[id]; !ok {
			return transaction.ErrTransactionNotFound{TransactionID: id}
		}
		delete(st.transactions, id)
		return nil
	})
}

func (r *transactionRepository) List(_ context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	var matched []*transaction.Transaction
	err := r.run(func(st *state) error {
		for _, t := range st.transactions {
			if matches(t, filter) {
				matched = append(matched, t.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := int64(len(matched))
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if filter.Offset >= len(matched) {
		return []*transaction.Transaction{}, total, nil
	}
	end := filter.Offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func matches(t *transaction.Transaction, f transaction.Filter) bool {
	if t.WalletID != f.WalletID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.IsInflow != nil && t.IsInflow != *f.IsInflow {
		return false
	}
	return inWindow(t.CreatedAt, f.From, f.To)
}

func inWindow(at, from, to time.Time) bool {
	if !from.IsZero() && at.Before(from) {
		return false
	}
	if !to.IsZero() && !at.Before(to) {
		return false
	}
	return true
}

func (r *transactionRepository) SumSuccessful(_ context.Context, walletID uuid.UUID) (transaction.Totals, error) {
	totals := transaction.Totals{Inflow: decimal.Zero, Outflow: decimal.Zero}
	err := r.run(func(st *state) error {
		for _, t := range st.transactions {
			if t.WalletID != walletID || t.Status != transaction.StatusSuccessful {
				continue
			}
			if t.IsInflow {
				totals.Inflow = money.Add(totals.Inflow, t.Amount)
			} else {
				totals.Outflow = money.Add(totals.Outflow, t.Amount)
			}
			totals.Count++
		}
		return nil
	})
	totals.Net = money.Sub(totals.Inflow, totals.Outflow)
	return totals, err
}

func (r *transactionRepository) SumOutflow(_ context.Context, walletID uuid.UUID, category transaction.Category, statuses []transaction.Status, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.run(func(st *state) error {
		for _, t := range st.transactions {
			if t.WalletID != walletID || t.IsInflow || t.Category != category {
				continue
			}
			if !hasStatus(statuses, t.Status) || !inWindow(t.CreatedAt, from, to) {
				continue
			}
			sum = money.Add(sum, t.Amount)
		}
		return nil
	})
	return sum, err
}

func hasStatus(statuses []transaction.Status, s transaction.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r *transactionRepository) Summarize(_ context.Context, walletID uuid.UUID, from, to time.Time) ([]transaction.Aggregate, error) {
	type key struct {
		category transaction.Category
		status   transaction.Status
		inflow   bool
	}
	groups := make(map[key]*transaction.Aggregate)
	err := r.run(func(st *state) error {
		for _, t := range st.transactions {
			if t.WalletID != walletID || !inWindow(t.CreatedAt, from, to) {
				continue
			}
			k := key{t.Category, t.Status, t.IsInflow}
			a, ok := groups[k]
			if !ok {
				a = &transaction.Aggregate{Category: t.Category, Status: t.Status, IsInflow: t.IsInflow, Total: decimal.Zero}
				groups[k] = a
			}
			a.Count++
			a.Total = money.Add(a.Total, t.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	aggregates := make([]transaction.Aggregate, 0, len(groups))
	for _, a := range groups {
		aggregates = append(aggregates, *a)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Status != b.Status {
			return a.Status < b.Status
		}
		return !a.IsInflow && b.IsInflow
	})
	return aggregates, nil
}

type outboxRepository struct {
	run runner
}

func (r *outboxRepository) Create(_ context.Context, message *outbox.Message) error {
	return r.run(func(st *state) error {
		st.nextOutboxID++
		message.ID = st.nextOutboxID
		st.outbox = append(st.outbox, cloneMessage(message))
		return nil
	})
}

func (r *outboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	var pending []*outbox.Message
	err := r.run(func(st *state) error {
		for _, m := range st.outbox {
			if m.Status != shared.OutboxStatusPending {
				continue
			}
			pending = append(pending, cloneMessage(m))
			if limit > 0 && len(pending) == limit {
				break
			}
		}
		return nil
	})
	return pending, err
}

func (r *outboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.withMessage(id, func(m *outbox.Message) { m.MarkAs(status, time.Now()) })
}

func (r *outboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.withMessage(id, func(m *outbox.Message) { m.IncrementAttempts(time.Now()) })
}

func (r *outboxRepository) withMessage(id int64, fn func(*outbox.Message)) error {
	return r.run(func(st *state) error {
		for _, m := range st.outbox {
			if m.ID == id {
				fn(m)
				return nil
			}
		}
		return outbox.ErrMessageNotFound{ID: id}
	})
}
