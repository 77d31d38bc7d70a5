package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows a transaction listing. Zero values are ignored.
type Filter struct {
	WalletID uuid.UUID
	Status   Status
	Category Category
	IsInflow *bool
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Totals is the aggregate of a wallet's successful transactions.
type Totals struct {
	Net     decimal.Decimal `json:"net"`
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Count   int64           `json:"count"`
}

// Aggregate is one grouped row of Summarize.
type Aggregate struct {
	Category Category        `json:"category"`
	Status   Status          `json:"status"`
	IsInflow bool            `json:"is_inflow"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

// Repository manages transaction log persistence
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// GetByIdempotencyKey returns nil, nil when the key is unused on the wallet
	GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*Transaction, error)

	Update(ctx context.Context, txn *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns a page of matching transactions, newest first, and the total match count
	List(ctx context.Context, filter Filter) ([]*Transaction, int64, error)

	// SumSuccessful aggregates every successful transaction of the wallet
	SumSuccessful(ctx context.Context, walletID uuid.UUID) (Totals, error)

	// SumOutflow totals outflows of a category in the given statuses created in [from, to)
	SumOutflow(ctx context.Context, walletID uuid.UUID, category Category, statuses []Status, from, to time.Time) (decimal.Decimal, error)

	// Summarize groups transactions created in [from, to) by category, status and direction
	Summarize(ctx context.Context, walletID uuid.UUID, from, to time.Time) ([]Aggregate, error)
}
