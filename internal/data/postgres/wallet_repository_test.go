package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/wallet"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func columnNames(columns string) []string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// anyArgs matches n positional arguments of any value
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func testWallet() *wallet.Wallet {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reconciled := now.Add(-time.Hour)
	return &wallet.Wallet{
		ID:                 uuid.New(),
		UserID:             "user-42",
		Balance:            decimal.RequireFromString("150.25"),
		PendingCredits:     decimal.Zero,
		PendingDebits:      decimal.RequireFromString("20.00"),
		PendingWithdrawals: decimal.RequireFromString("15.00"),
		Limits: wallet.Limits{
			DailyWithdrawal:   decimal.RequireFromString("500"),
			MonthlyWithdrawal: decimal.RequireFromString("2000"),
			MaxBalance:        decimal.RequireFromString("10000"),
			MinWithdrawal:     decimal.RequireFromString("1"),
		},
		Status:            wallet.StatusActive,
		Currency:          money.USD,
		PinHash:           "$2a$10$hash",
		TotalEarned:       decimal.RequireFromString("170.25"),
		TotalWithdrawn:    decimal.RequireFromString("20"),
		TotalTransactions: 4,
		LastReconciled:    &reconciled,
		ReconciledBalance: decimal.NewNullDecimal(decimal.RequireFromString("150.25")),
		Version:           3,
		CreatedAt:         now.Add(-24 * time.Hour),
		UpdatedAt:         now,
	}
}

func walletRow(w *wallet.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(columnNames(walletColumns)).AddRow(
		w.ID, w.UserID, w.Balance, w.PendingCredits, w.PendingDebits, w.PendingWithdrawals,
		w.Limits.DailyWithdrawal, w.Limits.MonthlyWithdrawal, w.Limits.MaxBalance, w.Limits.MinWithdrawal,
		string(w.Status), w.StatusReason, string(w.Currency), w.PinHash, w.PinAttempts, w.PinLockedUntil,
		w.TotalEarned, w.TotalWithdrawn, w.TotalTransactions, w.LastReconciled, w.ReconciledBalance,
		w.IsFlagged, w.FlagReason, w.IsDeleted, w.Version, w.CreatedAt, w.UpdatedAt, w.ClosedAt,
	)
}

func newWalletRepo(t *testing.T) (*WalletRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &WalletRepository{querier: mock, logger: newTestLogger()}, mock
}

func TestWalletRepository_Create(t *testing.T) {
	ctx := context.Background()
	w := testWallet()

	t.Run("success", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectExec(`INSERT INTO wallets`).
			WithArgs(walletArgs(w)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, w))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate user", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectExec(`INSERT INTO wallets`).
			WithArgs(walletArgs(w)...).
			WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: walletUserConstraint})

		err := repo.Create(ctx, w)
		assert.ErrorIs(t, err, wallet.ErrWalletAlreadyExists)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		expectedErr := errors.New("db error")
		mock.ExpectExec(`INSERT INTO wallets`).
			WithArgs(walletArgs(w)...).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, w)
		assert.ErrorIs(t, err, expectedErr)
		assert.Contains(t, err.Error(), "failed to create wallet")
		assert.Equal(t, shared.ErrInternal, shared.KindOf(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	w := testWallet()
	query := `FROM wallets WHERE id = \$1 AND is_deleted = FALSE`

	t.Run("success", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(query).WithArgs(w.ID).WillReturnRows(walletRow(w))

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(query).WithArgs(w.ID).WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByID(ctx, w.ID)
		assert.Nil(t, got)
		var notFound wallet.ErrWalletNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, w.ID, notFound.WalletID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_GetByUserID(t *testing.T) {
	ctx := context.Background()
	w := testWallet()
	query := `FROM wallets WHERE user_id = \$1 AND is_deleted = FALSE`

	t.Run("success", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(query).WithArgs(w.UserID).WillReturnRows(walletRow(w))

		got, err := repo.GetByUserID(ctx, w.UserID)
		require.NoError(t, err)
		assert.Equal(t, w.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(query).WithArgs("ghost").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByUserID(ctx, "ghost")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	w := testWallet()
	query := `FROM wallets WHERE id = \$1 FOR UPDATE`

	t.Run("returns closed wallets", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		closed := *w
		closed.Status = wallet.StatusClosed
		closed.IsDeleted = true
		closedAt := w.UpdatedAt
		closed.ClosedAt = &closedAt
		mock.ExpectQuery(query).WithArgs(w.ID).WillReturnRows(walletRow(&closed))

		got, err := repo.LockForUpdate(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, wallet.StatusClosed, got.Status)
		assert.True(t, got.IsDeleted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout is busy", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectQuery(query).WithArgs(w.ID).
			WillReturnError(&pgconn.PgError{Code: codeLockNotAvailable, Message: "canceling statement due to lock timeout"})

		_, err := repo.LockForUpdate(ctx, w.ID)
		assert.ErrorIs(t, err, shared.ErrBusy)
		assert.True(t, shared.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_Update(t *testing.T) {
	ctx := context.Background()
	w := testWallet()

	t.Run("success", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectExec(`UPDATE wallets SET balance = \$1`).
			WithArgs(
				w.Balance, w.PendingCredits, w.PendingDebits, w.PendingWithdrawals,
				w.Limits.DailyWithdrawal, w.Limits.MonthlyWithdrawal, w.Limits.MaxBalance, w.Limits.MinWithdrawal,
				string(w.Status), w.StatusReason, w.PinHash, w.PinAttempts, w.PinLockedUntil,
				w.TotalEarned, w.TotalWithdrawn, w.TotalTransactions,
				w.LastReconciled, w.ReconciledBalance, w.IsFlagged, w.FlagReason,
				w.IsDeleted, w.Version, w.UpdatedAt, w.ClosedAt,
				w.ID, w.Version-1,
			).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Update(ctx, w))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version moved", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectExec(`UPDATE wallets`).
			WithArgs(append(anyArgs(24), w.ID, w.Version-1)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, w)
		var conflict wallet.ErrConcurrentModification
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, w.Version-1, conflict.Version)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure is conflict", func(t *testing.T) {
		repo, mock := newWalletRepo(t)
		mock.ExpectExec(`UPDATE wallets`).
			WithArgs(anyArgs(26)...).
			WillReturnError(&pgconn.PgError{Code: codeSerializationFailure})

		err := repo.Update(ctx, w)
		assert.ErrorIs(t, err, shared.ErrConflict)
		assert.True(t, shared.IsRetryable(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletRepository_ListStale(t *testing.T) {
	ctx := context.Background()
	repo, mock := newWalletRepo(t)
	cutoff := time.Now().Add(-24 * time.Hour)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectQuery(`SELECT id FROM wallets WHERE is_deleted = FALSE AND \(last_reconciled IS NULL OR last_reconciled < \$1\)`).
		WithArgs(cutoff, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(ids[0]).AddRow(ids[1]))

	got, err := repo.ListStale(ctx, cutoff, 100)
	require.NoError(t, err)
	assert.Equal(t, ids, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
