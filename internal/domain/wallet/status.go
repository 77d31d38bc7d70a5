package wallet

import (
	"strings"
	"time"
)

// Freeze blocks all mutations until an administrator unfreezes the wallet.
func (w *Wallet) Freeze(reason string) error {
	return w.transition(StatusActive, StatusFrozen, reason)
}

// Unfreeze returns a frozen wallet to active.
func (w *Wallet) Unfreeze() error {
	return w.transition(StatusFrozen, StatusActive, "")
}

// Suspend blocks all mutations pending investigation.
func (w *Wallet) Suspend(reason string) error {
	return w.transition(StatusActive, StatusSuspended, reason)
}

// Activate lifts a suspension.
func (w *Wallet) Activate() error {
	return w.transition(StatusSuspended, StatusActive, "")
}

// Close is terminal. The wallet drops out of lookups and rejects every mutation.
func (w *Wallet) Close(reason string, now time.Time) error {
	if w.Status == StatusClosed || w.IsDeleted {
		return ErrWalletNotActive{WalletID: w.ID, Status: StatusClosed}
	}
	w.Status = StatusClosed
	w.StatusReason = strings.TrimSpace(reason)
	w.IsDeleted = true
	closedAt := now
	w.ClosedAt = &closedAt
	return nil
}

func (w *Wallet) transition(from, to Status, reason string) error {
	if w.Status == StatusClosed || w.IsDeleted {
		return ErrWalletNotActive{WalletID: w.ID, Status: StatusClosed}
	}
	if w.Status != from {
		if from == StatusActive {
			return ErrWalletNotActive{WalletID: w.ID, Status: w.Status}
		}
		return ErrInvalidTransition{From: w.Status, To: to}
	}

	reason = strings.TrimSpace(reason)
	if to != StatusActive && reason == "" {
		return ErrReasonRequired
	}
	w.Status = to
	w.StatusReason = reason
	return nil
}
