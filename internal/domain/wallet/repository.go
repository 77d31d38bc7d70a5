package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines wallet persistence operations
type Repository interface {
	Create(ctx context.Context, wallet *Wallet) error

	// GetByID and GetByUserID exclude closed (soft-deleted) wallets
	GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*Wallet, error)

	// LockForUpdate acquires a row lock for the enclosing unit of work.
	// Closed wallets are returned so callers can report WalletNotActive.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Wallet, error)

	// Update writes the wallet if the stored version is wallet.Version-1
	Update(ctx context.Context, wallet *Wallet) error

	// ListStale returns ids of open wallets never reconciled or last reconciled before the cutoff
	ListStale(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error)
}
