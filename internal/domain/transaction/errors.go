package transaction

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount           = fmt.Errorf("%w: amount must be positive", shared.ErrInvalidArgument)
	ErrInvalidCategory         = fmt.Errorf("%w: unknown category", shared.ErrInvalidArgument)
	ErrInvalidPaymentMethod    = fmt.Errorf("%w: unknown payment method", shared.ErrInvalidArgument)
	ErrInvalidCharges          = fmt.Errorf("%w: fee and tax must not be negative", shared.ErrInvalidArgument)
	ErrInvalidStatus           = fmt.Errorf("%w: unknown status", shared.ErrInvalidArgument)
	ErrFinalTransaction        = fmt.Errorf("%w: only admin notes and metadata may change on a final transaction", shared.ErrInvalidArgument)
	ErrSettledField            = fmt.Errorf("%w: only amount, direction, status and gateway fields may change on a settled transaction", shared.ErrInvalidArgument)
	ErrEmptyUpdate             = fmt.Errorf("%w: update has no fields", shared.ErrInvalidArgument)
	ErrIdempotencyKeyReuse     = fmt.Errorf("%w: idempotency key already used for a different movement", shared.ErrConflict)
	ErrDuplicateIdempotencyKey = fmt.Errorf("%w: idempotency key already used on this wallet", shared.ErrAlreadyExists)
)

// ErrTransactionNotFound indicates a missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

func (e ErrTransactionNotFound) Unwrap() error { return shared.ErrNotFound }

// ErrInvalidTransition indicates a status change the lifecycle does not allow
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot change transaction status from %s to %s", e.From, e.To)
}

func (e ErrInvalidTransition) Unwrap() error { return shared.ErrInvalidArgument }
