package handler

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/reconciliation"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/ledger"
)

// IdempotencyKeyHeader carries the idempotency key when the body omits it
const IdempotencyKeyHeader = "Idempotency-Key"

// LimitsRequest overrides individual default limits of a new wallet
type LimitsRequest struct {
	DailyWithdrawal   *decimal.Decimal `json:"daily_withdrawal"`
	MonthlyWithdrawal *decimal.Decimal `json:"monthly_withdrawal"`
	MaxBalance        *decimal.Decimal `json:"max_balance"`
	MinWithdrawal     *decimal.Decimal `json:"min_withdrawal"`
}

func (r *LimitsRequest) apply(defaults wallet.Limits) wallet.Limits {
	if r.DailyWithdrawal != nil {
		defaults.DailyWithdrawal = *r.DailyWithdrawal
	}
	if r.MonthlyWithdrawal != nil {
		defaults.MonthlyWithdrawal = *r.MonthlyWithdrawal
	}
	if r.MaxBalance != nil {
		defaults.MaxBalance = *r.MaxBalance
	}
	if r.MinWithdrawal != nil {
		defaults.MinWithdrawal = *r.MinWithdrawal
	}
	return defaults
}

// CreateWalletRequest represents a request to create a wallet
type CreateWalletRequest struct {
	UserID   string         `json:"user_id" binding:"required,max=128"`
	Currency string         `json:"currency" binding:"required"`
	Limits   *LimitsRequest `json:"limits,omitempty"`
}

// MovementRequest is the body of credit, debit, reserve and confirm calls
type MovementRequest struct {
	Amount                decimal.Decimal   `json:"amount"`
	Currency              string            `json:"currency,omitempty"`
	Category              string            `json:"category,omitempty"`
	PaymentMethod         string            `json:"payment_method,omitempty"`
	Description           string            `json:"description,omitempty" binding:"max=500"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	GatewayResponse       map[string]string `json:"gateway_response,omitempty"`
	Fee                   decimal.Decimal   `json:"fee"`
	Tax                   decimal.Decimal   `json:"tax"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	IdempotencyKey        string            `json:"idempotency_key,omitempty" binding:"max=255"`
}

func (r *MovementRequest) meta(idempotencyHeader, correlationID string) (ledger.MovementMeta, error) {
	meta := ledger.MovementMeta{
		Category:              transaction.Category(r.Category),
		PaymentMethod:         transaction.PaymentMethod(r.PaymentMethod),
		Description:           r.Description,
		ExternalTransactionID: r.ExternalTransactionID,
		GatewayResponse:       r.GatewayResponse,
		Fee:                   r.Fee,
		Tax:                   r.Tax,
		Metadata:              r.Metadata,
		IdempotencyKey:        r.IdempotencyKey,
		CorrelationID:         correlationID,
	}
	if meta.IdempotencyKey == "" {
		meta.IdempotencyKey = idempotencyHeader
	}
	if r.Currency != "" {
		currency, ok := money.ParseCurrency(r.Currency)
		if !ok {
			return meta, wallet.ErrInvalidCurrency
		}
		meta.Currency = currency
	}
	return meta, nil
}

// ReleaseRequest is the body of hold release calls
type ReleaseRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// Category picks the debit hold to release; withdrawal when empty
	Category transaction.Category `json:"category"`
}

// StatusChangeRequest carries the operator's reason for a status transition
type StatusChangeRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PinRequest carries a PIN to set or verify
type PinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// CorrectBalanceRequest carries the operator note for a balance correction
type CorrectBalanceRequest struct {
	Note string `json:"note" binding:"max=500"`
}

// CreateTransactionRequest records a pending transaction for later settlement
type CreateTransactionRequest struct {
	WalletID              string            `json:"wallet_id" binding:"required,uuid"`
	Amount                decimal.Decimal   `json:"amount"`
	IsInflow              bool              `json:"is_inflow"`
	Category              string            `json:"category,omitempty"`
	PaymentMethod         string            `json:"payment_method,omitempty"`
	Description           string            `json:"description,omitempty" binding:"max=500"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	GatewayResponse       map[string]string `json:"gateway_response,omitempty"`
	Fee                   decimal.Decimal   `json:"fee"`
	Tax                   decimal.Decimal   `json:"tax"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	IdempotencyKey        string            `json:"idempotency_key,omitempty" binding:"max=255"`
}

func (r *CreateTransactionRequest) input(idempotencyHeader string) transaction.Input {
	in := transaction.Input{
		Amount:                r.Amount,
		IsInflow:              r.IsInflow,
		Category:              transaction.Category(r.Category),
		PaymentMethod:         transaction.PaymentMethod(r.PaymentMethod),
		Description:           r.Description,
		ExternalTransactionID: r.ExternalTransactionID,
		GatewayResponse:       r.GatewayResponse,
		Fee:                   r.Fee,
		Tax:                   r.Tax,
		Metadata:              r.Metadata,
		IdempotencyKey:        r.IdempotencyKey,
	}
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = idempotencyHeader
	}
	return in
}

// ListTransactionsQuery holds the filters of a transaction listing
type ListTransactionsQuery struct {
	Status    string `form:"status"`
	Category  string `form:"category"`
	Direction string `form:"direction" binding:"omitempty,oneof=inflow outflow"`
	From      string `form:"from"`
	To        string `form:"to"`
	PaginationParams
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func (p PaginationParams) offset() int {
	return (p.Page - 1) * p.PerPage
}

// PeriodQuery is a half-open [from, to) window in RFC 3339
type PeriodQuery struct {
	From string `form:"from" binding:"required"`
	To   string `form:"to" binding:"required"`
}

// LimitsResponse represents wallet limits in API responses
type LimitsResponse struct {
	DailyWithdrawal   string `json:"daily_withdrawal"`
	MonthlyWithdrawal string `json:"monthly_withdrawal"`
	MaxBalance        string `json:"max_balance"`
	MinWithdrawal     string `json:"min_withdrawal"`
}

// WalletResponse represents a wallet in API responses. Amounts are strings
// with two decimals.
type WalletResponse struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Status             string         `json:"status"`
	StatusReason       string         `json:"status_reason,omitempty"`
	Currency           string         `json:"currency"`
	Balance            string         `json:"balance"`
	AvailableBalance   string         `json:"available_balance"`
	PendingCredits     string         `json:"pending_credits"`
	PendingDebits      string         `json:"pending_debits"`
	PendingWithdrawals string         `json:"pending_withdrawals"`
	Limits             LimitsResponse `json:"limits"`
	TotalEarned        string         `json:"total_earned"`
	TotalWithdrawn     string         `json:"total_withdrawn"`
	TotalTransactions  int64          `json:"total_transactions"`
	PinSet             bool           `json:"pin_set"`
	PinLockedUntil     string         `json:"pin_locked_until,omitempty"`
	LastReconciled     string         `json:"last_reconciled,omitempty"`
	IsFlagged          bool           `json:"is_flagged"`
	FlagReason         string         `json:"flag_reason,omitempty"`
	Version            int            `json:"version"`
	CreatedAt          string         `json:"created_at"`
	UpdatedAt          string         `json:"updated_at"`
	ClosedAt           string         `json:"closed_at,omitempty"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID                    string            `json:"id"`
	WalletID              string            `json:"wallet_id"`
	UserID                string            `json:"user_id"`
	Amount                string            `json:"amount"`
	IsInflow              bool              `json:"is_inflow"`
	Currency              string            `json:"currency"`
	PaymentMethod         string            `json:"payment_method"`
	Category              string            `json:"category"`
	Status                string            `json:"status"`
	Description           string            `json:"description,omitempty"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	GatewayResponse       map[string]string `json:"gateway_response,omitempty"`
	Fee                   string            `json:"fee"`
	Tax                   string            `json:"tax"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	AdminNotes            string            `json:"admin_notes,omitempty"`
	IdempotencyKey        string            `json:"idempotency_key,omitempty"`
	CreatedAt             string            `json:"created_at"`
	UpdatedAt             string            `json:"updated_at"`
	ProcessedAt           string            `json:"processed_at,omitempty"`
}

// MovementResponse is returned by calls that settle money
type MovementResponse struct {
	Wallet      WalletResponse      `json:"wallet"`
	Transaction TransactionResponse `json:"transaction"`
}

// UsageResponse reports withdrawal usage against the wallet limits. Remaining
// is omitted for unlimited windows.
type UsageResponse struct {
	WalletID         string `json:"wallet_id"`
	DailyUsed        string `json:"daily_used"`
	DailyLimit       string `json:"daily_limit"`
	DailyRemaining   string `json:"daily_remaining,omitempty"`
	MonthlyUsed      string `json:"monthly_used"`
	MonthlyLimit     string `json:"monthly_limit"`
	MonthlyRemaining string `json:"monthly_remaining,omitempty"`
	DayStart         string `json:"day_start"`
	MonthStart       string `json:"month_start"`
}

// ReportResponse represents a reconciliation report in API responses
type ReportResponse struct {
	ID               string `json:"id"`
	WalletID         string `json:"wallet_id"`
	UserID           string `json:"user_id"`
	Outcome          string `json:"outcome"`
	StoredBalance    string `json:"stored_balance"`
	ComputedBalance  string `json:"computed_balance"`
	Difference       string `json:"difference"`
	Tolerance        string `json:"tolerance"`
	TransactionCount int64  `json:"transaction_count"`
	FlagReason       string `json:"flag_reason,omitempty"`
	WalletVersion    int    `json:"wallet_version"`
	Attempts         int    `json:"attempts"`
	ReconciledAt     string `json:"reconciled_at"`
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func mapWalletToResponse(w *wallet.Wallet) WalletResponse {
	return WalletResponse{
		ID:                 w.ID.String(),
		UserID:             w.UserID,
		Status:             string(w.Status),
		StatusReason:       w.StatusReason,
		Currency:           string(w.Currency),
		Balance:            money.Format(w.Balance),
		AvailableBalance:   money.Format(w.AvailableBalance()),
		PendingCredits:     money.Format(w.PendingCredits),
		PendingDebits:      money.Format(w.PendingDebits),
		PendingWithdrawals: money.Format(w.PendingWithdrawals),
		Limits: LimitsResponse{
			DailyWithdrawal:   money.Format(w.Limits.DailyWithdrawal),
			MonthlyWithdrawal: money.Format(w.Limits.MonthlyWithdrawal),
			MaxBalance:        money.Format(w.Limits.MaxBalance),
			MinWithdrawal:     money.Format(w.Limits.MinWithdrawal),
		},
		TotalEarned:       money.Format(w.TotalEarned),
		TotalWithdrawn:    money.Format(w.TotalWithdrawn),
		TotalTransactions: w.TotalTransactions,
		PinSet:            w.HasPin(),
		PinLockedUntil:    formatTime(w.PinLockedUntil),
		LastReconciled:    formatTime(w.LastReconciled),
		IsFlagged:         w.IsFlagged,
		FlagReason:        w.FlagReason,
		Version:           w.Version,
		CreatedAt:         formatTime(&w.CreatedAt),
		UpdatedAt:         formatTime(&w.UpdatedAt),
		ClosedAt:          formatTime(w.ClosedAt),
	}
}

func mapTransactionToResponse(t *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                    t.ID.String(),
		WalletID:              t.WalletID.String(),
		UserID:                t.UserID,
		Amount:                money.Format(t.Amount),
		IsInflow:              t.IsInflow,
		Currency:              string(t.Currency),
		PaymentMethod:         string(t.PaymentMethod),
		Category:              string(t.Category),
		Status:                string(t.Status),
		Description:           t.Description,
		ExternalTransactionID: t.ExternalTransactionID,
		GatewayResponse:       t.GatewayResponse,
		Fee:                   money.Format(t.Fee),
		Tax:                   money.Format(t.Tax),
		Metadata:              t.Metadata,
		AdminNotes:            t.AdminNotes,
		IdempotencyKey:        t.IdempotencyKey,
		CreatedAt:             formatTime(&t.CreatedAt),
		UpdatedAt:             formatTime(&t.UpdatedAt),
		ProcessedAt:           formatTime(t.ProcessedAt),
	}
}

func mapTransactionsToResponse(txns []*transaction.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for _, t := range txns {
		out = append(out, mapTransactionToResponse(t))
	}
	return out
}

func mapUsageToResponse(u ledger.WithdrawalUsage) UsageResponse {
	resp := UsageResponse{
		WalletID:     u.WalletID.String(),
		DailyUsed:    money.Format(u.DailyUsed),
		DailyLimit:   money.Format(u.DailyLimit),
		MonthlyUsed:  money.Format(u.MonthlyUsed),
		MonthlyLimit: money.Format(u.MonthlyLimit),
		DayStart:     formatTime(&u.DayStart),
		MonthStart:   formatTime(&u.MonthStart),
	}
	if remaining := u.DailyRemaining(); remaining != nil {
		resp.DailyRemaining = money.Format(*remaining)
	}
	if remaining := u.MonthlyRemaining(); remaining != nil {
		resp.MonthlyRemaining = money.Format(*remaining)
	}
	return resp
}

func mapReportToResponse(r *reconciliation.Report) ReportResponse {
	return ReportResponse{
		ID:               r.ID.String(),
		WalletID:         r.WalletID.String(),
		UserID:           r.UserID,
		Outcome:          string(r.Outcome),
		StoredBalance:    money.Format(r.StoredBalance),
		ComputedBalance:  money.Format(r.ComputedBalance),
		Difference:       money.Format(r.Difference),
		Tolerance:        money.Format(r.Tolerance),
		TransactionCount: r.TransactionCount,
		FlagReason:       r.FlagReason,
		WalletVersion:    r.WalletVersion,
		Attempts:         r.Attempts,
		ReconciledAt:     formatTime(&r.ReconciledAt),
	}
}
