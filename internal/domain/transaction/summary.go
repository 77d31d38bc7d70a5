package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
)

// CategoryTotals is the per-category slice of a Summary.
type CategoryTotals struct {
	Inflow  decimal.Decimal `json:"inflow"`
	Outflow decimal.Decimal `json:"outflow"`
	Count   int64           `json:"count"`
}

// Summary is the analytics view of a wallet over a period. Money totals only
// include successful transactions; StatusCounts covers every status.
type Summary struct {
	WalletID     uuid.UUID                   `json:"wallet_id"`
	From         time.Time                   `json:"from"`
	To           time.Time                   `json:"to"`
	TotalInflow  decimal.Decimal             `json:"total_inflow"`
	TotalOutflow decimal.Decimal             `json:"total_outflow"`
	Net          decimal.Decimal             `json:"net"`
	ByCategory   map[Category]CategoryTotals `json:"by_category"`
	StatusCounts map[Status]int64            `json:"status_counts"`
	Count        int64                       `json:"count"`
}

// NewSummary folds grouped rows into a Summary.
func NewSummary(walletID uuid.UUID, from, to time.Time, rows []Aggregate) *Summary {
	s := &Summary{
		WalletID:     walletID,
		From:         from,
		To:           to,
		TotalInflow:  decimal.Zero,
		TotalOutflow: decimal.Zero,
		Net:          decimal.Zero,
		ByCategory:   make(map[Category]CategoryTotals),
		StatusCounts: make(map[Status]int64),
	}

	for _, r := range rows {
		s.Count += r.Count
		s.StatusCounts[r.Status] += r.Count
		if r.Status != StatusSuccessful {
			continue
		}

		ct := s.ByCategory[r.Category]
		ct.Count += r.Count
		if r.IsInflow {
			ct.Inflow = money.Add(ct.Inflow, r.Total)
			s.TotalInflow = money.Add(s.TotalInflow, r.Total)
		} else {
			ct.Outflow = money.Add(ct.Outflow, r.Total)
			s.TotalOutflow = money.Add(s.TotalOutflow, r.Total)
		}
		s.ByCategory[r.Category] = ct
	}
	s.Net = money.Sub(s.TotalInflow, s.TotalOutflow)
	return s
}
