package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/platform/persistence"
)

const transactionIdempotencyConstraint = "wallet_transactions_wallet_id_idempotency_key_key"

const transactionColumns = `id, wallet_id, user_id, amount, is_inflow, currency, payment_method, category,
		status, description, external_transaction_id, gateway_response, fee, tax, metadata,
		admin_notes, idempotency_key, created_at, updated_at, processed_at`

const defaultListLimit = 50

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, querier persistence.Querier) *TransactionRepository {
	return &TransactionRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransactionRepository) WithTx(tx pgx.Tx) *TransactionRepository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a transaction to the log
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		INSERT INTO wallet_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	gateway, metadata, err := encodeMaps(txn)
	if err != nil {
		return fmt.Errorf("failed to encode transaction maps: %w", err)
	}

	_, err = r.querier.Exec(ctx, query,
		txn.ID,
		txn.WalletID,
		txn.UserID,
		txn.Amount,
		txn.IsInflow,
		string(txn.Currency),
		string(txn.PaymentMethod),
		string(txn.Category),
		string(txn.Status),
		txn.Description,
		txn.ExternalTransactionID,
		gateway,
		txn.Fee,
		txn.Tax,
		metadata,
		txn.AdminNotes,
		nullString(txn.IdempotencyKey),
		txn.CreatedAt,
		txn.UpdatedAt,
		txn.ProcessedAt,
	)
	if err != nil {
		if isUniqueViolation(err, transactionIdempotencyConstraint) {
			return transaction.ErrDuplicateIdempotencyKey
		}
		r.logger.Error("Failed to create transaction", "transaction_id", txn.ID.String(), "wallet_id", txn.WalletID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", classify(err))
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE id = $1
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", classify(err))
	}

	return txn, nil
}

// GetByIdempotencyKey returns nil, nil when the key has not been used on the wallet
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*transaction.Transaction, error) {
	if key == "" {
		return nil, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = $1 AND idempotency_key = $2
	`

	txn, err := scanTransaction(r.querier.QueryRow(ctx, query, walletID, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get transaction by idempotency key", "wallet_id", walletID.String(), "idempotency_key", key, "error", err)
		return nil, fmt.Errorf("failed to get transaction by idempotency key: %w", classify(err))
	}

	return txn, nil
}

// Update writes the mutable columns of a transaction
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	query := `
		UPDATE wallet_transactions
		SET amount = $1, is_inflow = $2, payment_method = $3, category = $4, status = $5,
			description = $6, external_transaction_id = $7, gateway_response = $8, fee = $9, tax = $10,
			metadata = $11, admin_notes = $12, updated_at = $13, processed_at = $14
		WHERE id = $15
	`

	gateway, metadata, err := encodeMaps(txn)
	if err != nil {
		return fmt.Errorf("failed to encode transaction maps: %w", err)
	}

	result, err := r.querier.Exec(ctx, query,
		txn.Amount,
		txn.IsInflow,
		string(txn.PaymentMethod),
		string(txn.Category),
		string(txn.Status),
		txn.Description,
		txn.ExternalTransactionID,
		gateway,
		txn.Fee,
		txn.Tax,
		metadata,
		txn.AdminNotes,
		txn.UpdatedAt,
		txn.ProcessedAt,
		txn.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: txn.ID}
	}

	return nil
}

// Delete removes a transaction from the log
func (r *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM wallet_transactions
		WHERE id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "transaction_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete transaction: %w", classify(err))
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{TransactionID: id}
	}

	return nil
}

// List returns a page of matching transactions, newest first, with the total match count
func (r *TransactionRepository) List(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error) {
	where, args := listConditions(filter)

	var total int64
	countQuery := `SELECT COUNT(*) FROM wallet_transactions WHERE ` + where
	if err := r.querier.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "wallet_id", filter.WalletID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", classify(err))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM wallet_transactions
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d
	`, transactionColumns, where, len(args)-1, len(args))

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "wallet_id", filter.WalletID.String(), "error", err)
		return nil, 0, fmt.Errorf("failed to list transactions: %w", classify(err))
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, 0, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, 0, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txns, total, nil
}

// SumSuccessful aggregates every successful transaction of the wallet
func (r *TransactionRepository) SumSuccessful(ctx context.Context, walletID uuid.UUID) (transaction.Totals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN is_inflow THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN is_inflow THEN 0 ELSE amount END), 0),
			COUNT(*)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND status = $2
	`

	var totals transaction.Totals
	err := r.querier.QueryRow(ctx, query, walletID, string(transaction.StatusSuccessful)).Scan(
		&totals.Inflow,
		&totals.Outflow,
		&totals.Count,
	)
	if err != nil {
		r.logger.Error("Failed to sum successful transactions", "wallet_id", walletID.String(), "error", err)
		return transaction.Totals{}, fmt.Errorf("failed to sum successful transactions: %w", classify(err))
	}

	totals.Inflow = money.Round(totals.Inflow)
	totals.Outflow = money.Round(totals.Outflow)
	totals.Net = money.Sub(totals.Inflow, totals.Outflow)
	return totals, nil
}

// SumOutflow totals outflows of one category in the given statuses created in [from, to)
func (r *TransactionRepository) SumOutflow(ctx context.Context, walletID uuid.UUID, category transaction.Category, statuses []transaction.Status, from, to time.Time) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND category = $2 AND is_inflow = FALSE
			AND status = ANY($3) AND created_at >= $4 AND created_at < $5
	`

	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	var sum decimal.Decimal
	if err := r.querier.QueryRow(ctx, query, walletID, string(category), names, from, to).Scan(&sum); err != nil {
		r.logger.Error("Failed to sum outflows", "wallet_id", walletID.String(), "category", string(category), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum outflows: %w", classify(err))
	}

	return money.Round(sum), nil
}

// Summarize groups transactions created in [from, to) by category, status and direction
func (r *TransactionRepository) Summarize(ctx context.Context, walletID uuid.UUID, from, to time.Time) ([]transaction.Aggregate, error) {
	query := `
		SELECT category, status, is_inflow, COUNT(*), COALESCE(SUM(amount), 0)
		FROM wallet_transactions
		WHERE wallet_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY category, status, is_inflow
		ORDER BY category, status, is_inflow
	`

	rows, err := r.querier.Query(ctx, query, walletID, from, to)
	if err != nil {
		r.logger.Error("Failed to summarize transactions", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to summarize transactions: %w", classify(err))
	}
	defer rows.Close()

	var aggregates []transaction.Aggregate
	for rows.Next() {
		var (
			a        transaction.Aggregate
			category string
			status   string
		)
		if err := rows.Scan(&category, &status, &a.IsInflow, &a.Count, &a.Total); err != nil {
			r.logger.Error("Failed to scan transaction aggregate", "error", err)
			return nil, fmt.Errorf("failed to scan transaction aggregate: %w", err)
		}
		a.Category = transaction.Category(category)
		a.Status = transaction.Status(status)
		a.Total = money.Round(a.Total)
		aggregates = append(aggregates, a)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transaction aggregates", "error", err)
		return nil, fmt.Errorf("error iterating over transaction aggregates: %w", err)
	}

	return aggregates, nil
}

func listConditions(filter transaction.Filter) (string, []any) {
	conditions := []string{"wallet_id = $1"}
	args := []any{filter.WalletID}

	add := func(column, op string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", column, op, len(args)))
	}
	if filter.Status != "" {
		add("status", "=", string(filter.Status))
	}
	if filter.Category != "" {
		add("category", "=", string(filter.Category))
	}
	if filter.IsInflow != nil {
		add("is_inflow", "=", *filter.IsInflow)
	}
	if !filter.From.IsZero() {
		add("created_at", ">=", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at", "<", filter.To)
	}
	return strings.Join(conditions, " AND "), args
}

func encodeMaps(txn *transaction.Transaction) ([]byte, []byte, error) {
	gateway, err := encodeMap(txn.GatewayResponse)
	if err != nil {
		return nil, nil, err
	}
	metadata, err := encodeMap(txn.Metadata)
	if err != nil {
		return nil, nil, err
	}
	return gateway, metadata, nil
}

func encodeMap(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeMap(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var (
		txn            transaction.Transaction
		currency       string
		paymentMethod  string
		category       string
		status         string
		gateway        []byte
		metadata       []byte
		idempotencyKey *string
	)
	err := row.Scan(
		&txn.ID,
		&txn.WalletID,
		&txn.UserID,
		&txn.Amount,
		&txn.IsInflow,
		&currency,
		&paymentMethod,
		&category,
		&status,
		&txn.Description,
		&txn.ExternalTransactionID,
		&gateway,
		&txn.Fee,
		&txn.Tax,
		&metadata,
		&txn.AdminNotes,
		&idempotencyKey,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Currency = money.Currency(currency)
	txn.PaymentMethod = transaction.PaymentMethod(paymentMethod)
	txn.Category = transaction.Category(category)
	txn.Status = transaction.Status(status)
	if idempotencyKey != nil {
		txn.IdempotencyKey = *idempotencyKey
	}
	if txn.GatewayResponse, err = decodeMap(gateway); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if txn.Metadata, err = decodeMap(metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &txn, nil
}
