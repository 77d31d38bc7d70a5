package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/shared"
)

// Outcome classifies a single reconciliation run
type Outcome string

const (
	OutcomeMatched     Outcome = "matched"
	OutcomeDiscrepancy Outcome = "discrepancy"
	OutcomeSkipped     Outcome = "skipped"
)

// Report is the audit record written for every reconciliation of a wallet.
type Report struct {
	ID               uuid.UUID       `json:"id"`
	WalletID         uuid.UUID       `json:"wallet_id"`
	UserID           string          `json:"user_id"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	ComputedBalance  decimal.Decimal `json:"computed_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Tolerance        decimal.Decimal `json:"tolerance"`
	TransactionCount int64           `json:"transaction_count"`
	Outcome          Outcome         `json:"outcome"`
	FlagReason       string          `json:"flag_reason,omitempty"`
	WalletVersion    int             `json:"wallet_version"`
	Attempts         int             `json:"attempts"`
	ReconciledAt     time.Time       `json:"reconciled_at"`
}

// IsDiscrepant reports whether the run flagged the wallet.
func (r *Report) IsDiscrepant() bool {
	return r.Outcome == OutcomeDiscrepancy
}

// BatchResult counts the outcomes of a batch run.
type BatchResult struct {
	Checked    int `json:"checked"`
	Discrepant int `json:"discrepant"`
	Failed     int `json:"failed"`
}

// Repository stores reconciliation reports
type Repository interface {
	Save(ctx context.Context, report *Report) error
	GetLatest(ctx context.Context, walletID uuid.UUID) (*Report, error)
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*Report, error)
}

// ErrReportNotFound indicates the wallet has never been reconciled
type ErrReportNotFound struct {
	WalletID uuid.UUID
}

func (e ErrReportNotFound) Error() string {
	return "no reconciliation report for wallet: " + e.WalletID.String()
}

func (e ErrReportNotFound) Unwrap() error { return shared.ErrNotFound }
