package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

// EventType names a wallet domain event
type EventType string

const (
	EventWalletCreated          EventType = "wallet.created"
	EventWalletCredited         EventType = "wallet.credited"
	EventWalletDebited          EventType = "wallet.debited"
	EventWalletCreditReserved   EventType = "wallet.credit_reserved"
	EventWalletDebitReserved    EventType = "wallet.debit_reserved"
	EventWalletCreditReleased   EventType = "wallet.credit_released"
	EventWalletDebitReleased    EventType = "wallet.debit_released"
	EventWalletStatusChanged    EventType = "wallet.status_changed"
	EventWalletFlagged          EventType = "wallet.flagged"
	EventWalletBalanceCorrected EventType = "wallet.balance_corrected"
	EventTransactionCreated     EventType = "transaction.created"
	EventTransactionUpdated     EventType = "transaction.updated"
	EventTransactionDeleted     EventType = "transaction.deleted"
)

// Event is the payload published for every committed wallet change. It carries
// a snapshot of the wallet after the change so consumers need no lookups.
type Event struct {
	EventID        uuid.UUID                `json:"event_id"`
	Type           EventType                `json:"type"`
	WalletID       uuid.UUID                `json:"wallet_id"`
	UserID         string                   `json:"user_id"`
	Status         wallet.Status            `json:"status"`
	Currency       money.Currency           `json:"currency"`
	Balance        decimal.Decimal          `json:"balance"`
	PendingCredits decimal.Decimal          `json:"pending_credits"`
	PendingDebits  decimal.Decimal          `json:"pending_debits"`
	Version        int                      `json:"version"`
	Amount         decimal.NullDecimal      `json:"amount"`
	Reason         string                   `json:"reason,omitempty"`
	Transaction    *transaction.Transaction `json:"transaction,omitempty"`
	CorrelationID  string                   `json:"correlation_id,omitempty"`
	OccurredAt     time.Time                `json:"occurred_at"`
}

// NewEvent snapshots w. txn may be nil for wallet-only events.
func NewEvent(eventType EventType, w *wallet.Wallet, txn *transaction.Transaction, now time.Time) *Event {
	return &Event{
		EventID:        uuid.New(),
		Type:           eventType,
		WalletID:       w.ID,
		UserID:         w.UserID,
		Status:         w.Status,
		Currency:       w.Currency,
		Balance:        w.Balance,
		PendingCredits: w.PendingCredits,
		PendingDebits:  w.PendingDebits,
		Version:        w.Version,
		Transaction:    txn.Clone(),
		OccurredAt:     now,
	}
}

// WithAmount records the amount moved by a hold event.
func (e *Event) WithAmount(amount decimal.Decimal) *Event {
	e.Amount = decimal.NewNullDecimal(amount)
	return e
}

// WithReason records why the change happened.
func (e *Event) WithReason(reason string) *Event {
	e.Reason = reason
	return e
}

// WithCorrelationID ties the event to the request that caused it.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}
