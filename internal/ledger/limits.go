package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

var withdrawalStatuses = []transaction.Status{transaction.StatusPending, transaction.StatusSuccessful}

// WithdrawalUsage is how much of the withdrawal limits is used in the current
// UTC day and month. Withdrawal holds count against both windows.
type WithdrawalUsage struct {
	WalletID     uuid.UUID       `json:"wallet_id"`
	DailyUsed    decimal.Decimal `json:"daily_used"`
	DailyLimit   decimal.Decimal `json:"daily_limit"`
	MonthlyUsed  decimal.Decimal `json:"monthly_used"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	DayStart     time.Time       `json:"day_start"`
	MonthStart   time.Time       `json:"month_start"`
}

// DailyRemaining is the amount still withdrawable today, nil when unlimited
func (u WithdrawalUsage) DailyRemaining() *decimal.Decimal {
	return remaining(u.DailyLimit, u.DailyUsed)
}

// MonthlyRemaining is the amount still withdrawable this month, nil when unlimited
func (u WithdrawalUsage) MonthlyRemaining() *decimal.Decimal {
	return remaining(u.MonthlyLimit, u.MonthlyUsed)
}

func remaining(limit, used decimal.Decimal) *decimal.Decimal {
	if limit.IsZero() {
		return nil
	}
	r := money.Sub(limit, used)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return &r
}

func dayStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func usage(ctx context.Context, repos storage.Repositories, w *wallet.Wallet, now time.Time) (WithdrawalUsage, error) {
	day, month := dayStart(now), monthStart(now)

	daily, err := repos.Transactions.SumOutflow(ctx, w.ID, transaction.CategoryWithdrawal, withdrawalStatuses, day, day.AddDate(0, 0, 1))
	if err != nil {
		return WithdrawalUsage{}, err
	}
	monthly, err := repos.Transactions.SumOutflow(ctx, w.ID, transaction.CategoryWithdrawal, withdrawalStatuses, month, month.AddDate(0, 1, 0))
	if err != nil {
		return WithdrawalUsage{}, err
	}

	return WithdrawalUsage{
		WalletID:     w.ID,
		DailyUsed:    money.Add(daily, w.PendingWithdrawals),
		DailyLimit:   w.Limits.DailyWithdrawal,
		MonthlyUsed:  money.Add(monthly, w.PendingWithdrawals),
		MonthlyLimit: w.Limits.MonthlyWithdrawal,
		DayStart:     day,
		MonthStart:   month,
	}, nil
}

// checkWithdrawal enforces the minimum, the available balance and both windows
func (e *Engine) checkWithdrawal(ctx context.Context, u *unit, amount decimal.Decimal) error {
	w := u.wallet
	if amount.LessThan(w.Limits.MinWithdrawal) {
		return ErrBelowMinimumWithdrawal
	}
	if amount.GreaterThan(w.AvailableBalance()) {
		return wallet.ErrInsufficientFunds
	}
	return e.checkWindows(ctx, u, amount)
}

// checkWindows checks that withdrawing extra more keeps both windows in limit
func (e *Engine) checkWindows(ctx context.Context, u *unit, extra decimal.Decimal) error {
	used, err := usage(ctx, u.repos, u.wallet, u.now)
	if err != nil {
		return err
	}
	if exceeds(used.DailyUsed, extra, used.DailyLimit) {
		return ErrDailyWithdrawalLimit
	}
	if exceeds(used.MonthlyUsed, extra, used.MonthlyLimit) {
		return ErrMonthlyWithdrawalLimit
	}
	return nil
}

// countsAsWithdrawal reports whether t is summed into the withdrawal windows
func countsAsWithdrawal(t *transaction.Transaction) bool {
	if t.IsInflow || t.Category != transaction.CategoryWithdrawal {
		return false
	}
	for _, s := range withdrawalStatuses {
		if t.Status == s {
			return true
		}
	}
	return false
}

// checkUpdatedWithdrawal limits an update that grows what txn counts against
// the windows. The stored row still carries the old amount when counted.
func (e *Engine) checkUpdatedWithdrawal(ctx context.Context, u *unit, txn *transaction.Transaction, oldAmount decimal.Decimal, wasCounted bool) error {
	if !countsAsWithdrawal(txn) {
		return nil
	}
	extra := txn.Amount
	if wasCounted {
		extra = money.Sub(txn.Amount, oldAmount)
	}
	if !extra.IsPositive() {
		return nil
	}
	if txn.Amount.LessThan(u.wallet.Limits.MinWithdrawal) {
		return ErrBelowMinimumWithdrawal
	}
	return e.checkWindows(ctx, u, extra)
}

func exceeds(used, amount, limit decimal.Decimal) bool {
	return !limit.IsZero() && money.Add(used, amount).GreaterThan(limit)
}

// WithdrawalUsage reports the withdrawal windows of an open wallet at now
func (e *Engine) WithdrawalUsage(ctx context.Context, walletID uuid.UUID, now time.Time) (WithdrawalUsage, error) {
	var result WithdrawalUsage
	err := e.store.ReadSnapshot(ctx, func(ctx context.Context, repos storage.Repositories) error {
		w, err := repos.Wallets.GetByID(ctx, walletID)
		if err != nil {
			return err
		}
		result, err = usage(ctx, repos, w, now)
		return err
	})
	return result, err
}
