package wallet

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLimits() Limits {
	return Limits{
		DailyWithdrawal:   d("500"),
		MonthlyWithdrawal: d("2000"),
		MaxBalance:        d("1000"),
		MinWithdrawal:     d("1"),
	}
}

func newTestWallet(t *testing.T, balance string) *Wallet {
	t.Helper()
	w, err := NewWallet("user-1", money.USD, testLimits(), time.Now())
	require.NoError(t, err)
	w.Balance = d(balance)
	return w
}

func TestNewWallet(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		w, err := NewWallet("  user-1 ", money.PTS, testLimits(), now)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, w.ID)
		assert.Equal(t, "user-1", w.UserID)
		assert.Equal(t, StatusActive, w.Status)
		assert.True(t, w.Balance.IsZero())
		assert.True(t, w.AvailableBalance().IsZero())
		assert.Equal(t, 1, w.Version, "Initial version should be 1")
		assert.Equal(t, now, w.CreatedAt)
		assert.False(t, w.ReconciledBalance.Valid)
	})

	t.Run("EmptyUserID", func(t *testing.T) {
		_, err := NewWallet(" ", money.USD, testLimits(), time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})

	t.Run("UnsupportedCurrency", func(t *testing.T) {
		_, err := NewWallet("user-1", money.Currency("XYZ"), testLimits(), time.Now())
		assert.ErrorIs(t, err, ErrInvalidCurrency)
	})

	t.Run("InvalidLimits", func(t *testing.T) {
		limits := testLimits()
		limits.MaxBalance = decimal.Zero
		_, err := NewWallet("user-1", money.USD, limits, time.Now())
		assert.ErrorIs(t, err, ErrInvalidLimits)

		limits = testLimits()
		limits.MinWithdrawal = d("-1")
		_, err = NewWallet("user-1", money.USD, limits, time.Now())
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)

		limits = testLimits()
		limits.DailyWithdrawal = d("5000")
		_, err = NewWallet("user-1", money.USD, limits, time.Now())
		assert.ErrorIs(t, err, ErrInvalidLimits, "daily limit above monthly limit")
	})

	t.Run("ZeroWindowLimitsMeanUnlimited", func(t *testing.T) {
		limits := testLimits()
		limits.DailyWithdrawal = decimal.Zero
		limits.MonthlyWithdrawal = decimal.Zero
		_, err := NewWallet("user-1", money.USD, limits, time.Now())
		assert.NoError(t, err)
	})
}

func TestWallet_Credit(t *testing.T) {
	t.Run("SuccessfulCredit", func(t *testing.T) {
		w := newTestWallet(t, "0")
		require.NoError(t, w.Credit(d("500")))

		assert.True(t, d("500").Equal(w.Balance))
		assert.True(t, d("500").Equal(w.TotalEarned))
		assert.Equal(t, int64(1), w.TotalTransactions)
	})

	t.Run("ExceedsMaxBalance", func(t *testing.T) {
		w := newTestWallet(t, "500")
		err := w.Credit(d("600"))

		assert.ErrorIs(t, err, shared.ErrLimitExceeded)
		assert.True(t, d("500").Equal(w.Balance), "balance must be unchanged")
		assert.Equal(t, int64(0), w.TotalTransactions)
	})

	t.Run("CreditToExactlyMaxBalance", func(t *testing.T) {
		w := newTestWallet(t, "500")
		require.NoError(t, w.Credit(d("500")))
		assert.True(t, d("1000").Equal(w.Balance))
	})

	t.Run("RoundsToZero", func(t *testing.T) {
		w := newTestWallet(t, "0")
		assert.ErrorIs(t, w.Credit(d("0.004")), shared.ErrInvalidArgument)
		assert.ErrorIs(t, w.Credit(d("-3")), shared.ErrInvalidArgument)
	})

	t.Run("RoundsHalfToEven", func(t *testing.T) {
		w := newTestWallet(t, "0")
		require.NoError(t, w.Credit(d("0.125")))
		assert.Equal(t, "0.12", w.Balance.StringFixed(2))
	})
}

func TestWallet_Debit(t *testing.T) {
	t.Run("SuccessfulDebit", func(t *testing.T) {
		w := newTestWallet(t, "100")
		require.NoError(t, w.Debit(d("60")))

		assert.True(t, d("40").Equal(w.Balance))
		assert.True(t, d("60").Equal(w.TotalWithdrawn))
		assert.Equal(t, int64(1), w.TotalTransactions)
	})

	t.Run("RespectsHolds", func(t *testing.T) {
		w := newTestWallet(t, "100")
		w.PendingDebits = d("80")

		err := w.Debit(d("30"))
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.True(t, d("100").Equal(w.Balance))
	})
}

func TestWallet_Holds(t *testing.T) {
	t.Run("ReserveDebitLimitsAvailable", func(t *testing.T) {
		w := newTestWallet(t, "100")
		require.NoError(t, w.ReserveDebit(d("80"), true))

		assert.True(t, d("80").Equal(w.PendingDebits))
		assert.True(t, d("20").Equal(w.AvailableBalance()))
		assert.True(t, d("100").Equal(w.Balance), "reserve must not touch balance")

		assert.ErrorIs(t, w.ReserveDebit(d("30"), false), shared.ErrInsufficientFunds)
		assert.True(t, d("80").Equal(w.PendingDebits))
	})

	t.Run("ReserveCreditCountsTowardsMaxBalance", func(t *testing.T) {
		w := newTestWallet(t, "600")
		require.NoError(t, w.ReserveCredit(d("300")))
		assert.ErrorIs(t, w.ReserveCredit(d("200")), shared.ErrLimitExceeded)
		assert.True(t, d("300").Equal(w.PendingCredits))
	})

	t.Run("CreditKeepsHeadroomForCreditHolds", func(t *testing.T) {
		w := newTestWallet(t, "600")
		require.NoError(t, w.ReserveCredit(d("300")))

		assert.ErrorIs(t, w.Credit(d("400")), shared.ErrLimitExceeded)
		assert.ErrorIs(t, w.AdjustBalance(d("400")), shared.ErrLimitExceeded)
		require.NoError(t, w.Credit(d("100")))

		require.NoError(t, w.ReleaseCredit(d("300")))
		require.NoError(t, w.Credit(d("300")))
		assert.True(t, d("1000").Equal(w.Balance))
	})

	t.Run("WithdrawalHoldsTrackedApart", func(t *testing.T) {
		w := newTestWallet(t, "100")
		require.NoError(t, w.ReserveDebit(d("30"), true))
		require.NoError(t, w.ReserveDebit(d("20"), false))
		assert.True(t, d("50").Equal(w.PendingDebits))
		assert.True(t, d("30").Equal(w.PendingWithdrawals))

		assert.ErrorIs(t, w.ReleaseDebit(d("25"), false), shared.ErrInvalidArgument)
		assert.ErrorIs(t, w.ReleaseDebit(d("31"), true), shared.ErrInvalidArgument)

		require.NoError(t, w.ReleaseDebit(d("30"), true))
		assert.True(t, d("20").Equal(w.PendingDebits))
		assert.True(t, w.PendingWithdrawals.IsZero())
	})

	t.Run("ReleaseMoreThanHeld", func(t *testing.T) {
		w := newTestWallet(t, "100")
		require.NoError(t, w.ReserveDebit(d("10"), false))
		require.NoError(t, w.ReserveCredit(d("10")))

		assert.ErrorIs(t, w.ReleaseDebit(d("10.01"), false), shared.ErrInvalidArgument)
		assert.ErrorIs(t, w.ReleaseCredit(d("11")), shared.ErrInvalidArgument)

		require.NoError(t, w.ReleaseDebit(d("10"), false))
		require.NoError(t, w.ReleaseCredit(d("4")))
		assert.True(t, w.PendingDebits.IsZero())
		assert.True(t, d("6").Equal(w.PendingCredits))
	})
}

func TestWallet_AdjustBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance string
		pending string
		delta   string
		want    string
		err     error
	}{
		{"positive", "100", "0", "25.50", "125.50", nil},
		{"negative", "100", "0", "-40", "60", nil},
		{"below zero", "100", "0", "-100.01", "100", shared.ErrInsufficientFunds},
		{"below holds", "100", "50", "-60", "100", shared.ErrInsufficientFunds},
		{"above max", "900", "0", "100.01", "900", shared.ErrLimitExceeded},
		{"zero", "100", "0", "0", "100", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWallet(t, tt.balance)
			w.PendingDebits = d(tt.pending)

			err := w.AdjustBalance(d(tt.delta))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, d(tt.want).Equal(w.Balance), "balance %s", w.Balance)
		})
	}
}

func TestWallet_Reconcile(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Match", func(t *testing.T) {
		w := newTestWallet(t, "100")
		discrepant := w.Reconcile(d("100"), money.Epsilon, now)

		assert.False(t, discrepant)
		assert.False(t, w.IsFlagged)
		require.NotNil(t, w.LastReconciled)
		assert.Equal(t, now, *w.LastReconciled)
		assert.True(t, d("100").Equal(w.ReconciledBalance.Decimal))
	})

	t.Run("WithinTolerance", func(t *testing.T) {
		w := newTestWallet(t, "100.01")
		assert.False(t, w.Reconcile(d("100"), money.Epsilon, now))
	})

	t.Run("Drift", func(t *testing.T) {
		w := newTestWallet(t, "150")
		discrepant := w.Reconcile(d("100"), money.Epsilon, now)

		assert.True(t, discrepant)
		assert.True(t, w.IsFlagged)
		assert.Equal(t, "Balance discrepancy: expected 100.00, actual 150.00", w.FlagReason)
		assert.True(t, d("150").Equal(w.Balance), "reconcile must not overwrite balance")
	})

	t.Run("MatchKeepsExistingFlag", func(t *testing.T) {
		w := newTestWallet(t, "100")
		w.Flag("manual review")
		w.Reconcile(d("100"), money.Epsilon, now)

		assert.True(t, w.IsFlagged)
		assert.Equal(t, "manual review", w.FlagReason)
	})
}

func TestWallet_Correct(t *testing.T) {
	now := time.Now()

	t.Run("Overwrites", func(t *testing.T) {
		w := newTestWallet(t, "150")
		w.Flag(DiscrepancyReason(d("100"), d("150")))

		require.NoError(t, w.Correct(d("100"), d("120"), d("20"), 3, now))
		assert.True(t, d("100").Equal(w.Balance))
		assert.True(t, d("120").Equal(w.TotalEarned))
		assert.Equal(t, int64(3), w.TotalTransactions)
		assert.False(t, w.IsFlagged)
		assert.Empty(t, w.FlagReason)
	})

	t.Run("RejectsInvariantViolation", func(t *testing.T) {
		w := newTestWallet(t, "150")
		w.PendingDebits = d("120")

		err := w.Correct(d("100"), d("100"), d("0"), 1, now)
		assert.ErrorIs(t, err, shared.ErrLimitExceeded)
		assert.False(t, shared.IsRetryable(err))
		assert.True(t, d("150").Equal(w.Balance))

		assert.ErrorIs(t, w.Correct(d("-5"), d("0"), d("5"), 1, now), shared.ErrLimitExceeded)
	})
}

func TestWallet_TouchAndClone(t *testing.T) {
	w := newTestWallet(t, "10")
	locked := time.Now().Add(time.Minute)
	w.PinLockedUntil = &locked

	c := w.Clone()
	c.Touch(time.Now())
	*c.PinLockedUntil = time.Time{}

	assert.Equal(t, 1, w.Version)
	assert.Equal(t, 2, c.Version)
	assert.Equal(t, locked, *w.PinLockedUntil, "clone must not share pointers")
}
