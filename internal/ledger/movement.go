package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

var (
	ErrCurrencyMismatch       = fmt.Errorf("%w: currency does not match wallet", shared.ErrInvalidArgument)
	ErrWalletIDRequired       = fmt.Errorf("%w: wallet id is required", shared.ErrInvalidArgument)
	ErrInvalidPeriod          = fmt.Errorf("%w: period start must be before its end", shared.ErrInvalidArgument)
	ErrInvalidPage            = fmt.Errorf("%w: limit and offset must not be negative", shared.ErrInvalidArgument)
	ErrBelowMinimumWithdrawal = fmt.Errorf("%w: amount is below the minimum withdrawal", shared.ErrLimitExceeded)
	ErrDailyWithdrawalLimit   = fmt.Errorf("%w: daily withdrawal limit exceeded", shared.ErrLimitExceeded)
	ErrMonthlyWithdrawalLimit = fmt.Errorf("%w: monthly withdrawal limit exceeded", shared.ErrLimitExceeded)
)

// MovementMeta carries the descriptive fields of a credit or debit
type MovementMeta struct {
	Category              transaction.Category
	PaymentMethod         transaction.PaymentMethod
	Description           string
	ExternalTransactionID string
	GatewayResponse       map[string]string
	Fee                   decimal.Decimal
	Tax                   decimal.Decimal
	Metadata              map[string]string
	IdempotencyKey        string
	CorrelationID         string

	// Currency, when set, must match the wallet currency
	Currency money.Currency
}

func (m MovementMeta) input(amount decimal.Decimal, inflow bool) transaction.Input {
	return transaction.Input{
		Amount:                amount,
		IsInflow:              inflow,
		Category:              m.Category,
		PaymentMethod:         m.PaymentMethod,
		Description:           m.Description,
		ExternalTransactionID: m.ExternalTransactionID,
		GatewayResponse:       m.GatewayResponse,
		Fee:                   m.Fee,
		Tax:                   m.Tax,
		Metadata:              m.Metadata,
		IdempotencyKey:        m.IdempotencyKey,
	}
}

// withDefaultCategory fills in category when the caller left it empty
func (m MovementMeta) withDefaultCategory(category transaction.Category) MovementMeta {
	if m.Category == "" {
		m.Category = category
	}
	return m
}

func (m MovementMeta) checkCurrency(w *wallet.Wallet) error {
	if m.Currency != "" && m.Currency != w.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func validAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = money.Round(amount)
	if !amount.IsPositive() {
		return amount, wallet.ErrInvalidAmount
	}
	return amount, nil
}
