package storage

import (
	"context"

	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

// Repositories groups the repositories bound to one unit of work
type Repositories struct {
	Wallets      wallet.Repository
	Transactions transaction.Repository
	Outbox       outbox.Repository
}

// Store opens units of work over the wallet, transaction and outbox tables.
type Store interface {
	// Repositories returns repositories that run outside any unit of work
	Repositories() Repositories

	// RunInTx commits if fn returns nil and rolls back otherwise
	RunInTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// ReadSnapshot runs fn against a read-only consistent snapshot
	ReadSnapshot(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
