package wallet

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
)

// Status is a wallet lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusFrozen    Status = "frozen"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFrozen, StatusSuspended, StatusClosed:
		return true
	}
	return false
}

// Limits bound the wallet balance and withdrawals. A zero daily or monthly
// withdrawal limit means the window is unlimited.
type Limits struct {
	DailyWithdrawal   decimal.Decimal `json:"daily_withdrawal"`
	MonthlyWithdrawal decimal.Decimal `json:"monthly_withdrawal"`
	MaxBalance        decimal.Decimal `json:"max_balance"`
	MinWithdrawal     decimal.Decimal `json:"min_withdrawal"`
}

// Normalize rounds every limit to the money scale.
func (l Limits) Normalize() Limits {
	return Limits{
		DailyWithdrawal:   money.Round(l.DailyWithdrawal),
		MonthlyWithdrawal: money.Round(l.MonthlyWithdrawal),
		MaxBalance:        money.Round(l.MaxBalance),
		MinWithdrawal:     money.Round(l.MinWithdrawal),
	}
}

// Validate checks the limits are non-negative and internally consistent.
func (l Limits) Validate() error {
	if l.DailyWithdrawal.IsNegative() || l.MonthlyWithdrawal.IsNegative() || l.MinWithdrawal.IsNegative() {
		return ErrInvalidLimits
	}
	if !l.MaxBalance.IsPositive() {
		return ErrInvalidLimits
	}
	if !l.DailyWithdrawal.IsZero() && !l.MonthlyWithdrawal.IsZero() && l.DailyWithdrawal.GreaterThan(l.MonthlyWithdrawal) {
		return ErrInvalidLimits
	}
	return nil
}

// Wallet is the per-user balance record. Balance, holds and counters are only
// changed through the methods below so the invariants are checked in one place.
type Wallet struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             string              `json:"user_id"`
	Balance            decimal.Decimal     `json:"balance"`
	PendingCredits     decimal.Decimal     `json:"pending_credits"`
	PendingDebits      decimal.Decimal     `json:"pending_debits"`
	PendingWithdrawals decimal.Decimal     `json:"pending_withdrawals"` // Part of PendingDebits held for withdrawals
	Limits             Limits              `json:"limits"`
	Status             Status              `json:"status"`
	StatusReason       string              `json:"status_reason,omitempty"`
	Currency           money.Currency      `json:"currency"`
	PinHash            string              `json:"-"`
	PinAttempts        int                 `json:"pin_attempts"`
	PinLockedUntil     *time.Time          `json:"pin_locked_until,omitempty"`
	TotalEarned        decimal.Decimal     `json:"total_earned"`
	TotalWithdrawn     decimal.Decimal     `json:"total_withdrawn"`
	TotalTransactions  int64               `json:"total_transactions"`
	LastReconciled     *time.Time          `json:"last_reconciled,omitempty"`
	ReconciledBalance  decimal.NullDecimal `json:"reconciled_balance"`
	IsFlagged          bool                `json:"is_flagged"`
	FlagReason         string              `json:"flag_reason,omitempty"`
	IsDeleted          bool                `json:"is_deleted"`
	Version            int                 `json:"version"` // For optimistic locking
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
	ClosedAt           *time.Time          `json:"closed_at,omitempty"`
}

// NewWallet creates an active, empty wallet for userID.
func NewWallet(userID string, currency money.Currency, limits Limits, now time.Time) (*Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if !currency.Valid() {
		return nil, ErrInvalidCurrency
	}
	limits = limits.Normalize()
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	return &Wallet{
		ID:                 uuid.New(),
		UserID:             userID,
		Balance:            decimal.Zero,
		PendingCredits:     decimal.Zero,
		PendingDebits:      decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		Limits:             limits,
		Status:             StatusActive,
		Currency:           currency,
		TotalEarned:        decimal.Zero,
		TotalWithdrawn:     decimal.Zero,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// AvailableBalance is the amount usable for new debits.
func (w *Wallet) AvailableBalance() decimal.Decimal {
	return money.Sub(w.Balance, w.PendingDebits)
}

// IsActive reports whether mutating operations are permitted.
func (w *Wallet) IsActive() bool {
	return w.Status == StatusActive && !w.IsDeleted
}

// EnsureActive rejects every mutation unless the wallet is active.
func (w *Wallet) EnsureActive() error {
	if !w.IsActive() {
		return ErrWalletNotActive{WalletID: w.ID, Status: w.Status}
	}
	return nil
}

// EnsureOpen rejects mutations on a closed wallet while allowing frozen and
// suspended ones, for administrative and security operations.
func (w *Wallet) EnsureOpen() error {
	if w.Status == StatusClosed || w.IsDeleted {
		return ErrWalletNotActive{WalletID: w.ID, Status: w.Status}
	}
	return nil
}

// Touch records a write. The repository uses Version-1 as the expected stored version.
func (w *Wallet) Touch(now time.Time) {
	w.Version++
	w.UpdatedAt = now
}

// headroom is what can still be credited without eating into credit holds
func (w *Wallet) headroom() decimal.Decimal {
	return money.Sub(money.Sub(w.Limits.MaxBalance, w.Balance), w.PendingCredits)
}

// Credit settles an inflow into the balance. Outstanding credit holds keep
// their share of the maximum balance, so confirming a hold releases it first.
func (w *Wallet) Credit(amount decimal.Decimal) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(w.headroom()) {
		return ErrMaxBalanceExceeded
	}
	next := money.Add(w.Balance, amount)
	w.Balance = next
	w.TotalEarned = money.Add(w.TotalEarned, amount)
	w.TotalTransactions++
	return nil
}

// Debit settles an outflow from the available balance.
func (w *Wallet) Debit(amount decimal.Decimal) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(w.AvailableBalance()) {
		return ErrInsufficientFunds
	}
	w.Balance = money.Sub(w.Balance, amount)
	w.TotalWithdrawn = money.Add(w.TotalWithdrawn, amount)
	w.TotalTransactions++
	return nil
}

// ReserveCredit holds an expected inflow. The hold counts against the maximum
// balance so confirming it can never overflow.
func (w *Wallet) ReserveCredit(amount decimal.Decimal) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(w.headroom()) {
		return ErrMaxBalanceExceeded
	}
	w.PendingCredits = money.Add(w.PendingCredits, amount)
	return nil
}

// ReserveDebit holds part of the available balance. Withdrawal holds are
// tracked apart so they alone count against the withdrawal limits.
func (w *Wallet) ReserveDebit(amount decimal.Decimal, withdrawal bool) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(w.AvailableBalance()) {
		return ErrInsufficientFunds
	}
	w.PendingDebits = money.Add(w.PendingDebits, amount)
	if withdrawal {
		w.PendingWithdrawals = money.Add(w.PendingWithdrawals, amount)
	}
	return nil
}

// ReleaseCredit drops part of the credit hold.
func (w *Wallet) ReleaseCredit(amount decimal.Decimal) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(w.PendingCredits) {
		return ErrHoldExceeded
	}
	w.PendingCredits = money.Sub(w.PendingCredits, amount)
	return nil
}

// ReleaseDebit drops part of the withdrawal or the other debit hold.
func (w *Wallet) ReleaseDebit(amount decimal.Decimal, withdrawal bool) error {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	held := money.Sub(w.PendingDebits, w.PendingWithdrawals)
	if withdrawal {
		held = w.PendingWithdrawals
	}
	if amount.GreaterThan(held) {
		return ErrHoldExceeded
	}
	w.PendingDebits = money.Sub(w.PendingDebits, amount)
	if withdrawal {
		w.PendingWithdrawals = money.Sub(w.PendingWithdrawals, amount)
	}
	return nil
}

// AdjustBalance applies a signed compensating delta from a transaction change,
// keeping both balance invariants intact.
func (w *Wallet) AdjustBalance(delta decimal.Decimal) error {
	next := money.Add(w.Balance, delta)
	if next.IsNegative() || money.Sub(next, w.PendingDebits).IsNegative() {
		return ErrInsufficientFunds
	}
	if delta.IsPositive() && delta.GreaterThan(w.headroom()) {
		return ErrMaxBalanceExceeded
	}
	w.Balance = next
	return nil
}

// RecordSettlement bumps the lifetime counters for a movement that reached
// the successful state outside Credit and Debit.
func (w *Wallet) RecordSettlement(amount decimal.Decimal, inflow bool) {
	if inflow {
		w.TotalEarned = money.Add(w.TotalEarned, amount)
	} else {
		w.TotalWithdrawn = money.Add(w.TotalWithdrawn, amount)
	}
	w.TotalTransactions++
}

// Reconcile records the outcome of a drift check against computed. It flags the
// wallet when the stored balance is off by more than tolerance and never
// touches the balance itself. A clean result leaves an existing flag in place.
func (w *Wallet) Reconcile(computed, tolerance decimal.Decimal, now time.Time) bool {
	computed = money.Round(computed)
	w.ReconciledBalance = decimal.NewNullDecimal(computed)
	reconciledAt := now
	w.LastReconciled = &reconciledAt

	if w.Balance.Sub(computed).Abs().GreaterThan(tolerance) {
		w.IsFlagged = true
		w.FlagReason = DiscrepancyReason(computed, w.Balance)
		return true
	}
	return false
}

// DiscrepancyReason formats the flag reason recorded for a drifted wallet.
func DiscrepancyReason(computed, actual decimal.Decimal) string {
	return "Balance discrepancy: expected " + money.Format(computed) + ", actual " + money.Format(actual)
}

// Correct overwrites the balance and counters with values recomputed from the
// transaction history and clears the discrepancy flag.
func (w *Wallet) Correct(balance, earned, withdrawn decimal.Decimal, count int64, now time.Time) error {
	balance = money.Round(balance)
	if balance.IsNegative() || balance.GreaterThan(w.Limits.MaxBalance) || money.Sub(balance, w.PendingDebits).IsNegative() {
		return ErrCorrectionRejected
	}
	w.Balance = balance
	w.TotalEarned = money.Round(earned)
	w.TotalWithdrawn = money.Round(withdrawn)
	w.TotalTransactions = count
	w.ReconciledBalance = decimal.NewNullDecimal(balance)
	correctedAt := now
	w.LastReconciled = &correctedAt
	w.IsFlagged = false
	w.FlagReason = ""
	return nil
}

// Flag marks the wallet for compliance review.
func (w *Wallet) Flag(reason string) {
	w.IsFlagged = true
	w.FlagReason = reason
}

// Clone returns a deep copy safe to mutate independently.
func (w *Wallet) Clone() *Wallet {
	if w == nil {
		return nil
	}
	c := *w
	c.PinLockedUntil = cloneTime(w.PinLockedUntil)
	c.LastReconciled = cloneTime(w.LastReconciled)
	c.ClosedAt = cloneTime(w.ClosedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
