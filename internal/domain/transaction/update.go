package transaction

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
)

// Update is a partial change to a transaction. Nil fields are left as they are;
// Metadata and GatewayResponse entries are merged.
type Update struct {
	Amount                *decimal.Decimal  `json:"amount,omitempty"`
	IsInflow              *bool             `json:"is_inflow,omitempty"`
	Status                *Status           `json:"status,omitempty"`
	Category              *Category         `json:"category,omitempty"`
	PaymentMethod         *PaymentMethod    `json:"payment_method,omitempty"`
	Description           *string           `json:"description,omitempty"`
	ExternalTransactionID *string           `json:"external_transaction_id,omitempty"`
	GatewayResponse       map[string]string `json:"gateway_response,omitempty"`
	Fee                   *decimal.Decimal  `json:"fee,omitempty"`
	Tax                   *decimal.Decimal  `json:"tax,omitempty"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	AdminNotes            *string           `json:"admin_notes,omitempty"`
}

// IsEmpty reports whether the update carries no change at all.
func (u Update) IsEmpty() bool {
	return u.IsAdministrativeOnly() && u.Metadata == nil && u.AdminNotes == nil
}

// TouchesBalance reports whether applying the update may change the wallet
// balance and therefore needs an active wallet.
func (u Update) TouchesBalance() bool {
	return u.Amount != nil || u.IsInflow != nil || u.Status != nil
}

// IsAdministrativeOnly reports whether the update only changes admin notes or metadata.
func (u Update) IsAdministrativeOnly() bool {
	return !u.TouchesBalance() &&
		u.Category == nil &&
		u.PaymentMethod == nil &&
		u.Description == nil &&
		u.ExternalTransactionID == nil &&
		u.GatewayResponse == nil &&
		u.Fee == nil &&
		u.Tax == nil
}

func (u Update) touchesMovementDetails() bool {
	return u.Category != nil || u.PaymentMethod != nil || u.Description != nil || u.Fee != nil || u.Tax != nil
}

// Apply validates the update against the current status and mutates t.
// Callers compare Effect before and after to derive the balance adjustment.
func (t *Transaction) Apply(u Update, now time.Time) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if t.Status.IsFinal() && !u.IsAdministrativeOnly() {
		return ErrFinalTransaction
	}
	if t.Status == StatusSuccessful && u.touchesMovementDetails() {
		return ErrSettledField
	}

	next := t.Clone()
	if u.Status != nil {
		if !u.Status.Valid() {
			return ErrInvalidStatus
		}
		if !CanTransition(t.Status, *u.Status) {
			return ErrInvalidTransition{From: t.Status, To: *u.Status}
		}
		next.Status = *u.Status
	}
	if u.Amount != nil {
		amount := money.Round(*u.Amount)
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}
		next.Amount = amount
	}
	if u.IsInflow != nil {
		next.IsInflow = *u.IsInflow
	}
	if u.Category != nil {
		if !u.Category.Valid() {
			return ErrInvalidCategory
		}
		next.Category = *u.Category
	}
	if u.PaymentMethod != nil {
		if !u.PaymentMethod.Valid() {
			return ErrInvalidPaymentMethod
		}
		next.PaymentMethod = *u.PaymentMethod
	}
	if u.Fee != nil {
		next.Fee = money.Round(*u.Fee)
	}
	if u.Tax != nil {
		next.Tax = money.Round(*u.Tax)
	}
	if next.Fee.IsNegative() || next.Tax.IsNegative() {
		return ErrInvalidCharges
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.ExternalTransactionID != nil {
		next.ExternalTransactionID = *u.ExternalTransactionID
	}
	if u.AdminNotes != nil {
		next.AdminNotes = *u.AdminNotes
	}
	next.GatewayResponse = merge(next.GatewayResponse, u.GatewayResponse)
	next.Metadata = merge(next.Metadata, u.Metadata)

	if t.Status == StatusPending && next.Status != StatusPending {
		processedAt := now
		next.ProcessedAt = &processedAt
	}
	next.UpdatedAt = now

	*t = *next
	return nil
}

func merge(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
