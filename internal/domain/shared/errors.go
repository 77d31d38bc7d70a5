package shared

import "errors"

// Error kinds. Domain errors wrap exactly one of these so callers can branch
// with errors.Is regardless of the concrete error type.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrWalletNotActive   = errors.New("wallet not active")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrLimitExceeded     = errors.New("limit exceeded")
	ErrPinLocked         = errors.New("pin locked")
	ErrBusy              = errors.New("busy")
	ErrConflict          = errors.New("conflict")
	ErrInternal          = errors.New("internal error")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidArgument, "INVALID_ARGUMENT"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadyExists, "ALREADY_EXISTS"},
	{ErrWalletNotActive, "WALLET_NOT_ACTIVE"},
	{ErrInsufficientFunds, "INSUFFICIENT_FUNDS"},
	{ErrLimitExceeded, "LIMIT_EXCEEDED"},
	{ErrPinLocked, "PIN_LOCKED"},
	{ErrBusy, "BUSY"},
	{ErrConflict, "CONFLICT"},
	{ErrInternal, "INTERNAL"},
}

// KindOf returns the kind sentinel err belongs to. Anything unclassified,
// storage failures included, is ErrInternal. A nil error has no kind.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err
		}
	}
	return ErrInternal
}

// KindName returns the stable upper snake case code for err's kind, or "OK" for nil.
func KindName(err error) string {
	kind := KindOf(err)
	if kind == nil {
		return "OK"
	}
	for _, k := range kinds {
		if k.err == kind {
			return k.name
		}
	}
	return "INTERNAL"
}

// IsRetryable reports whether the caller may retry the same call after a backoff.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == ErrBusy || kind == ErrConflict
}

// IsTerminal reports whether err is a business-rule rejection that must not be
// retried unchanged.
func IsTerminal(err error) bool {
	switch KindOf(err) {
	case ErrInsufficientFunds, ErrLimitExceeded, ErrWalletNotActive, ErrPinLocked:
		return true
	}
	return false
}
