// Package postgres provides PostgreSQL implementations of the domain repositories.
// Repositories run either on the pool or inside a unit of work opened by Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/platform/persistence"
)

const walletUserConstraint = "wallets_user_id_active_key"

const walletColumns = `id, user_id, balance, pending_credits, pending_debits, pending_withdrawals,
		daily_withdrawal_limit, monthly_withdrawal_limit, max_balance, min_withdrawal,
		status, status_reason, currency, pin_hash, pin_attempts, pin_locked_until,
		total_earned, total_withdrawn, total_transactions, last_reconciled, reconciled_balance,
		is_flagged, flag_reason, is_deleted, version, created_at, updated_at, closed_at`

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet repository
func NewWalletRepository(logger *slog.Logger, querier persistence.Querier) *WalletRepository {
	return &WalletRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *WalletRepository) WithTx(tx pgx.Tx) *WalletRepository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet. A second live wallet for the same user violates
// the partial unique index and is reported as wallet.ErrWalletAlreadyExists.
func (r *WalletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	query := `
		INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`

	_, err := r.querier.Exec(ctx, query, walletArgs(w)...)
	if err != nil {
		if isUniqueViolation(err, walletUserConstraint) {
			return wallet.ErrWalletAlreadyExists
		}
		r.logger.Error("Failed to create wallet", "user_id", w.UserID, "error", err)
		return fmt.Errorf("failed to create wallet: %w", classify(err))
	}

	return nil
}

// GetByID retrieves a live wallet by its ID
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = $1 AND is_deleted = FALSE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to get wallet", "wallet_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet: %w", classify(err))
	}

	return w, nil
}

// GetByUserID retrieves the live wallet owned by userID
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE user_id = $1 AND is_deleted = FALSE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{UserID: userID}
		}
		r.logger.Error("Failed to get wallet by user ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get wallet by user ID: %w", classify(err))
	}

	return w, nil
}

// LockForUpdate obtains a row lock on the wallet for the enclosing transaction.
// A lock wait beyond lock_timeout surfaces as shared.ErrBusy.
func (r *WalletRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*wallet.Wallet, error) {
	query := `
		SELECT ` + walletColumns + `
		FROM wallets
		WHERE id = $1
		FOR UPDATE
	`

	w, err := scanWallet(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: id}
		}
		r.logger.Error("Failed to lock wallet for update", "wallet_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock wallet for update: %w", classify(err))
	}

	return w, nil
}

// Update writes every mutable column, guarded by the optimistic version check
func (r *WalletRepository) Update(ctx context.Context, w *wallet.Wallet) error {
	query := `
		UPDATE wallets
		SET balance = $1, pending_credits = $2, pending_debits = $3, pending_withdrawals = $4,
			daily_withdrawal_limit = $5, monthly_withdrawal_limit = $6, max_balance = $7, min_withdrawal = $8,
			status = $9, status_reason = $10, pin_hash = $11, pin_attempts = $12, pin_locked_until = $13,
			total_earned = $14, total_withdrawn = $15, total_transactions = $16,
			last_reconciled = $17, reconciled_balance = $18, is_flagged = $19, flag_reason = $20,
			is_deleted = $21, version = $22, updated_at = $23, closed_at = $24
		WHERE id = $25 AND version = $26
	`

	result, err := r.querier.Exec(ctx, query,
		w.Balance,
		w.PendingCredits,
		w.PendingDebits,
		w.PendingWithdrawals,
		w.Limits.DailyWithdrawal,
		w.Limits.MonthlyWithdrawal,
		w.Limits.MaxBalance,
		w.Limits.MinWithdrawal,
		string(w.Status),
		w.StatusReason,
		w.PinHash,
		w.PinAttempts,
		w.PinLockedUntil,
		w.TotalEarned,
		w.TotalWithdrawn,
		w.TotalTransactions,
		w.LastReconciled,
		w.ReconciledBalance,
		w.IsFlagged,
		w.FlagReason,
		w.IsDeleted,
		w.Version,
		w.UpdatedAt,
		w.ClosedAt,
		w.ID,
		w.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update wallet", "wallet_id", w.ID.String(), "error", err)
		return fmt.Errorf("failed to update wallet: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: w.ID, Version: w.Version - 1}
	}

	return nil
}

// ListStale returns open wallets that were never reconciled or not since before,
// oldest first
func (r *WalletRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM wallets
		WHERE is_deleted = FALSE AND (last_reconciled IS NULL OR last_reconciled < $1)
		ORDER BY last_reconciled ASC NULLS FIRST, id
		LIMIT $2
	`

	rows, err := r.querier.Query(ctx, query, before, limit)
	if err != nil {
		r.logger.Error("Failed to list stale wallets", "error", err)
		return nil, fmt.Errorf("failed to list stale wallets: %w", classify(err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan stale wallet id", "error", err)
			return nil, fmt.Errorf("failed to scan stale wallet id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over stale wallets", "error", err)
		return nil, fmt.Errorf("error iterating over stale wallets: %w", err)
	}

	return ids, nil
}

func walletArgs(w *wallet.Wallet) []any {
	return []any{
		w.ID,
		w.UserID,
		w.Balance,
		w.PendingCredits,
		w.PendingDebits,
		w.PendingWithdrawals,
		w.Limits.DailyWithdrawal,
		w.Limits.MonthlyWithdrawal,
		w.Limits.MaxBalance,
		w.Limits.MinWithdrawal,
		string(w.Status),
		w.StatusReason,
		string(w.Currency),
		w.PinHash,
		w.PinAttempts,
		w.PinLockedUntil,
		w.TotalEarned,
		w.TotalWithdrawn,
		w.TotalTransactions,
		w.LastReconciled,
		w.ReconciledBalance,
		w.IsFlagged,
		w.FlagReason,
		w.IsDeleted,
		w.Version,
		w.CreatedAt,
		w.UpdatedAt,
		w.ClosedAt,
	}
}

func scanWallet(row pgx.Row) (*wallet.Wallet, error) {
	var (
		w        wallet.Wallet
		status   string
		currency string
	)
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Balance,
		&w.PendingCredits,
		&w.PendingDebits,
		&w.PendingWithdrawals,
		&w.Limits.DailyWithdrawal,
		&w.Limits.MonthlyWithdrawal,
		&w.Limits.MaxBalance,
		&w.Limits.MinWithdrawal,
		&status,
		&w.StatusReason,
		&currency,
		&w.PinHash,
		&w.PinAttempts,
		&w.PinLockedUntil,
		&w.TotalEarned,
		&w.TotalWithdrawn,
		&w.TotalTransactions,
		&w.LastReconciled,
		&w.ReconciledBalance,
		&w.IsFlagged,
		&w.FlagReason,
		&w.IsDeleted,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.ClosedAt,
	)
	if err != nil {
		return nil, err
	}
	w.Status = wallet.Status(status)
	w.Currency = money.Currency(currency)
	return &w, nil
}
