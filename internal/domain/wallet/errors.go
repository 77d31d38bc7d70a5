package wallet

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyUserID         = fmt.Errorf("%w: user id cannot be empty", shared.ErrInvalidArgument)
	ErrInvalidCurrency     = fmt.Errorf("%w: unsupported currency", shared.ErrInvalidArgument)
	ErrInvalidLimits       = fmt.Errorf("%w: limits must be non-negative with a positive max balance", shared.ErrInvalidArgument)
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", shared.ErrInvalidArgument)
	ErrHoldExceeded        = fmt.Errorf("%w: release exceeds pending hold", shared.ErrInvalidArgument)
	ErrReasonRequired      = fmt.Errorf("%w: reason is required", shared.ErrInvalidArgument)
	ErrInvalidPinFormat    = fmt.Errorf("%w: pin must be 4 to 6 digits", shared.ErrInvalidArgument)
	ErrPinNotSet           = fmt.Errorf("%w: pin is not set", shared.ErrInvalidArgument)
	ErrPinMismatch         = fmt.Errorf("%w: incorrect pin", shared.ErrInvalidArgument)
	ErrInsufficientFunds   = fmt.Errorf("%w: amount exceeds available balance", shared.ErrInsufficientFunds)
	ErrMaxBalanceExceeded  = fmt.Errorf("%w: maximum balance exceeded", shared.ErrLimitExceeded)
	ErrCorrectionRejected  = fmt.Errorf("%w: recomputed balance violates wallet invariants", shared.ErrLimitExceeded)
	ErrWalletAlreadyExists = fmt.Errorf("%w: user already has a wallet", shared.ErrAlreadyExists)
)

// ErrWalletNotFound is returned when no live wallet matches the lookup.
type ErrWalletNotFound struct {
	WalletID uuid.UUID
	UserID   string
}

func (e ErrWalletNotFound) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("wallet for user %s not found", e.UserID)
	}
	return fmt.Sprintf("wallet %s not found", e.WalletID)
}

func (e ErrWalletNotFound) Unwrap() error { return shared.ErrNotFound }

// ErrWalletNotActive is returned when a wallet's status forbids the operation.
type ErrWalletNotActive struct {
	WalletID uuid.UUID
	Status   Status
}

func (e ErrWalletNotActive) Error() string {
	return fmt.Sprintf("wallet %s is %s", e.WalletID, e.Status)
}

func (e ErrWalletNotActive) Unwrap() error { return shared.ErrWalletNotActive }

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot change wallet status from %s to %s", e.From, e.To)
}

func (e ErrInvalidTransition) Unwrap() error { return shared.ErrInvalidArgument }

// ErrConcurrentModification is returned when the stored version moved under an update.
type ErrConcurrentModification struct {
	WalletID uuid.UUID
	Version  int
}

func (e ErrConcurrentModification) Error() string {
	return fmt.Sprintf("wallet %s was modified concurrently (expected version %d)", e.WalletID, e.Version)
}

func (e ErrConcurrentModification) Unwrap() error { return shared.ErrConflict }

// ErrPinLocked is returned while the wallet refuses PIN checks.
type ErrPinLocked struct {
	Until time.Time
}

func (e ErrPinLocked) Error() string {
	return fmt.Sprintf("pin locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e ErrPinLocked) Unwrap() error { return shared.ErrPinLocked }
