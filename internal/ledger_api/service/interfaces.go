package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/reconciliation"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/ledger"
	reconsvc "github.com/wallet-ledger/internal/reconciliation"
)

// WalletService defines wallet lifecycle and money movement operations
type WalletService interface {
	DefaultLimits() wallet.Limits
	CreateWallet(ctx context.Context, userID string, currency money.Currency, limits *wallet.Limits) (*wallet.Wallet, error)
	GetWallet(ctx context.Context, walletID uuid.UUID) (*wallet.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID string) (*wallet.Wallet, error)

	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)
	Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)
	ReserveCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)
	ReserveDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)
	ConfirmPendingCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)
	ConfirmPendingDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)
	ReleasePendingCredit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)
	ReleasePendingDebit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)

	Freeze(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)
	Unfreeze(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)
	Suspend(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)
	Activate(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)
	Close(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)

	SetPin(ctx context.Context, walletID uuid.UUID, pin string) error
	VerifyPin(ctx context.Context, walletID uuid.UUID, pin string) error

	CorrectBalance(ctx context.Context, walletID uuid.UUID, note string) (*wallet.Wallet, error)
	WithdrawalUsage(ctx context.Context, walletID uuid.UUID, now time.Time) (ledger.WithdrawalUsage, error)
}

// TransactionService defines transaction log operations
type TransactionService interface {
	CreatePendingTransaction(ctx context.Context, walletID uuid.UUID, in transaction.Input, correlationID string) (*transaction.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, filter transaction.Filter) ([]*transaction.Transaction, int64, error)
	Summarize(ctx context.Context, walletID uuid.UUID, from, to time.Time) (*transaction.Summary, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, update transaction.Update, correlationID string) (*transaction.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID, correlationID string) error
}

// ReconciliationService defines drift checks and their reports
type ReconciliationService interface {
	ReconcileWallet(ctx context.Context, walletID uuid.UUID) (*reconciliation.Report, error)
	RunBatch(ctx context.Context) (reconciliation.BatchResult, error)
	LatestReport(ctx context.Context, walletID uuid.UUID) (*reconciliation.Report, error)
	Reports(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*reconciliation.Report, error)
}

var (
	_ WalletService         = (*ledger.Engine)(nil)
	_ TransactionService    = (*ledger.Engine)(nil)
	_ ReconciliationService = (*reconsvc.Service)(nil)
)
