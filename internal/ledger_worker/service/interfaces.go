package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/ledger"
)

// CreditService applies reward credit requests consumed from Kafka.
type CreditService interface {
	ApplyRewardCredit(ctx context.Context, request *shared.RewardCreditRequest) error
}

// Crediter is the slice of the ledger engine the worker needs
type Crediter interface {
	Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)
}
