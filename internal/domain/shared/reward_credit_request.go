package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RewardCreditRequest is the Kafka message reward-granting services publish
// when a user has earned a credit.
type RewardCreditRequest struct {
	RequestID             uuid.UUID         `json:"request_id"`
	WalletID              uuid.UUID         `json:"wallet_id"`
	Amount                decimal.Decimal   `json:"amount"`
	Currency              string            `json:"currency,omitempty"`
	Category              string            `json:"category"`
	Description           string            `json:"description,omitempty"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	IdempotencyKey        string            `json:"idempotency_key,omitempty"`
	CorrelationID         string            `json:"correlation_id,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	Timestamp             time.Time         `json:"timestamp"`
}

// Validate checks the envelope fields. Business validation happens in the ledger.
func (r *RewardCreditRequest) Validate() error {
	if r.RequestID == uuid.Nil {
		return fmt.Errorf("%w: request_id is required", ErrInvalidArgument)
	}
	if r.WalletID == uuid.Nil {
		return fmt.Errorf("%w: wallet_id is required", ErrInvalidArgument)
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if r.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidArgument)
	}
	return nil
}

// Key returns the idempotency key for the credit, falling back to the request id
// so redelivered messages never double-apply.
func (r *RewardCreditRequest) Key() string {
	if r.IdempotencyKey != "" {
		return r.IdempotencyKey
	}
	return "reward:" + r.RequestID.String()
}
