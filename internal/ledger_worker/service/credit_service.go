package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/ledger"
)

// ErrWithdrawalCategory rejects credit requests tagged as withdrawals
var ErrWithdrawalCategory = fmt.Errorf("%w: reward credits cannot use the withdrawal category", shared.ErrInvalidArgument)

// CreditServiceImpl turns reward credit requests into idempotent ledger credits
type CreditServiceImpl struct {
	ledger Crediter
	logger *slog.Logger
}

// NewCreditService creates a CreditServiceImpl
func NewCreditService(ledger Crediter, logger *slog.Logger) *CreditServiceImpl {
	return &CreditServiceImpl{
		ledger: ledger,
		logger: logger,
	}
}

// ApplyRewardCredit validates the request and credits the wallet. The request
// key doubles as the idempotency key, so a redelivered message is a replay.
func (s *CreditServiceImpl) ApplyRewardCredit(ctx context.Context, request *shared.RewardCreditRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	category := transaction.Category(request.Category)
	if category == transaction.CategoryWithdrawal {
		return ErrWithdrawalCategory
	}

	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	meta := ledger.MovementMeta{
		Category:              category,
		PaymentMethod:         transaction.PaymentMethodInternal,
		Description:           request.Description,
		ExternalTransactionID: request.ExternalTransactionID,
		Metadata:              request.Metadata,
		IdempotencyKey:        request.Key(),
		CorrelationID:         request.CorrelationID,
	}
	if request.Currency != "" {
		currency, ok := money.ParseCurrency(request.Currency)
		if !ok {
			return wallet.ErrInvalidCurrency
		}
		meta.Currency = currency
	}

	w, txn, err := s.ledger.Credit(ctx, request.WalletID, request.Amount, meta)
	if err != nil {
		return err
	}

	logger.Info("Reward credit applied",
		"request_id", request.RequestID.String(),
		"wallet_id", w.ID.String(),
		"transaction_id", txn.ID.String(),
		"amount", money.Format(txn.Amount),
		"balance", money.Format(w.Balance),
	)
	return nil
}
