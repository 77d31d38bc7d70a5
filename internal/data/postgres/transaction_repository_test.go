package postgres

import (
	"context"
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
	"github.com/wallet-ledger/internal/domain/transaction"
)

func testTransaction() *transaction.Transaction {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &transaction.Transaction{
		ID:              uuid.New(),
		WalletID:        uuid.New(),
		UserID:          "user-42",
		Amount:          decimal.RequireFromString("12.50"),
		IsInflow:        true,
		Currency:        money.USD,
		PaymentMethod:   transaction.PaymentMethodInternal,
		Category:        transaction.CategorySurveyReward,
		Status:          transaction.StatusSuccessful,
		Description:     "Survey 77",
		GatewayResponse: map[string]string{"code": "00"},
		Fee:             decimal.Zero,
		Tax:             decimal.Zero,
		IdempotencyKey:  "survey-77-user-42",
		CreatedAt:       now,
		UpdatedAt:       now,
		ProcessedAt:     &now,
	}
}

func transactionRow(txn *transaction.Transaction) *pgxmock.Rows {
	gateway, metadata, _ := encodeMaps(txn)
	return pgxmock.NewRows(columnNames(transactionColumns)).AddRow(
		txn.ID, txn.WalletID, txn.UserID, txn.Amount, txn.IsInflow,
		string(txn.Currency), string(txn.PaymentMethod), string(txn.Category), string(txn.Status),
		txn.Description, txn.ExternalTransactionID, gateway, txn.Fee, txn.Tax, metadata,
		txn.AdminNotes, nullString(txn.IdempotencyKey), txn.CreatedAt, txn.UpdatedAt, txn.ProcessedAt,
	)
}

func newTransactionRepo(t *testing.T) (*TransactionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &TransactionRepository{querier: mock, logger: newTestLogger()}, mock
}

func TestTransactionRepository_Create(t *testing.T) {
	ctx := context.Background()
	txn := testTransaction()
	key := txn.IdempotencyKey

	t.Run("success", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectExec(`INSERT INTO wallet_transactions`).
			WithArgs(
				txn.ID, txn.WalletID, txn.UserID, txn.Amount, true,
				"USD", "internal", "survey_reward", "successful",
				"Survey 77", "", []byte(`{"code":"00"}`), txn.Fee, txn.Tax, []byte(`{}`),
				"", &key, txn.CreatedAt, txn.UpdatedAt, txn.ProcessedAt,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, txn))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectExec(`INSERT INTO wallet_transactions`).
			WithArgs(anyArgs(20)...).
			WillReturnError(&pgconn.PgError{Code: codeUniqueViolation, ConstraintName: transactionIdempotencyConstraint})

		err := repo.Create(ctx, txn)
		assert.ErrorIs(t, err, transaction.ErrDuplicateIdempotencyKey)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	txn := testTransaction()

	t.Run("success", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectQuery(`FROM wallet_transactions WHERE id = \$1`).
			WithArgs(txn.ID).
			WillReturnRows(transactionRow(txn))

		got, err := repo.GetByID(ctx, txn.ID)
		require.NoError(t, err)
		assert.Equal(t, txn, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectQuery(`FROM wallet_transactions WHERE id = \$1`).
			WithArgs(txn.ID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, txn.ID)
		var notFound transaction.ErrTransactionNotFound
		require.ErrorAs(t, err, &notFound)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestTransactionRepository_GetByIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	txn := testTransaction()

	t.Run("hit", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectQuery(`WHERE wallet_id = \$1 AND idempotency_key = \$2`).
			WithArgs(txn.WalletID, txn.IdempotencyKey).
			WillReturnRows(transactionRow(txn))

		got, err := repo.GetByIdempotencyKey(ctx, txn.WalletID, txn.IdempotencyKey)
		require.NoError(t, err)
		assert.Equal(t, txn.ID, got.ID)
	})

	t.Run("miss", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectQuery(`idempotency_key = \$2`).
			WithArgs(txn.WalletID, "unused").
			WillReturnError(pgx.ErrNoRows)

		got, err := repo.GetByIdempotencyKey(ctx, txn.WalletID, "unused")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty key skips query", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		got, err := repo.GetByIdempotencyKey(ctx, txn.WalletID, "")
		assert.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	txn := testTransaction()

	t.Run("update missing row", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectExec(`UPDATE wallet_transactions`).
			WithArgs(append(anyArgs(14), txn.ID)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Update(ctx, txn)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectExec(`DELETE FROM wallet_transactions WHERE id = \$1`).
			WithArgs(txn.ID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		assert.NoError(t, repo.Delete(ctx, txn.ID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepository_List(t *testing.T) {
	ctx := context.Background()
	repo, mock := newTransactionRepo(t)
	txn := testTransaction()
	inflow := true
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	filter := transaction.Filter{
		WalletID: txn.WalletID,
		Status:   transaction.StatusSuccessful,
		IsInflow: &inflow,
		From:     from,
		Limit:    10,
		Offset:   20,
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM wallet_transactions WHERE wallet_id = \$1 AND status = \$2 AND is_inflow = \$3 AND created_at >= \$4`).
		WithArgs(txn.WalletID, "successful", true, from).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(21)))
	mock.ExpectQuery(`ORDER BY created_at DESC, id LIMIT \$5 OFFSET \$6`).
		WithArgs(txn.WalletID, "successful", true, from, 10, 20).
		WillReturnRows(transactionRow(txn))

	txns, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(21), total)
	require.Len(t, txns, 1)
	assert.Equal(t, txn.ID, txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Aggregates(t *testing.T) {
	ctx := context.Background()
	walletID := uuid.New()

	t.Run("sum successful", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		mock.ExpectQuery(`FROM wallet_transactions WHERE wallet_id = \$1 AND status = \$2`).
			WithArgs(walletID, "successful").
			WillReturnRows(pgxmock.NewRows([]string{"inflow", "outflow", "count"}).
				AddRow(decimal.RequireFromString("300.10"), decimal.RequireFromString("45.05"), int64(7)))

		totals, err := repo.SumSuccessful(ctx, walletID)
		require.NoError(t, err)
		assert.Equal(t, "255.05", totals.Net.StringFixed(2))
		assert.Equal(t, int64(7), totals.Count)
	})

	t.Run("sum outflow", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		statuses := []transaction.Status{transaction.StatusPending, transaction.StatusSuccessful}

		mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM wallet_transactions`).
			WithArgs(walletID, "withdrawal", []string{"pending", "successful"}, from, to).
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(decimal.RequireFromString("80")))

		sum, err := repo.SumOutflow(ctx, walletID, transaction.CategoryWithdrawal, statuses, from, to)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(80).Equal(sum))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("summarize", func(t *testing.T) {
		repo, mock := newTransactionRepo(t)
		from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)

		mock.ExpectQuery(`GROUP BY category, status, is_inflow`).
			WithArgs(walletID, from, to).
			WillReturnRows(pgxmock.NewRows([]string{"category", "status", "is_inflow", "count", "sum"}).
				AddRow("survey_reward", "successful", true, int64(3), decimal.RequireFromString("30")).
				AddRow("withdrawal", "pending", false, int64(1), decimal.RequireFromString("10")))

		rows, err := repo.Summarize(ctx, walletID, from, to)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, transaction.CategorySurveyReward, rows[0].Category)
		assert.Equal(t, transaction.StatusPending, rows[1].Status)
		assert.False(t, rows[1].IsInflow)
	})
}
