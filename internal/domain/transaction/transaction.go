package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
)

// Status is a transaction lifecycle state
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// IsFinal reports whether only administrative fields may still change.
func (s Status) IsFinal() bool {
	return s == StatusFailed || s == StatusCancelled || s == StatusRefunded
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusSuccessful, StatusFailed, StatusCancelled},
	StatusSuccessful: {StatusRefunded, StatusCancelled},
}

// CanTransition reports whether from -> to is allowed. Staying put is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Category tags why money moved
type Category string

const (
	CategorySurveyReward  Category = "survey_reward"
	CategoryAdReward      Category = "ad_reward"
	CategoryAppReward     Category = "app_reward"
	CategoryReferralBonus Category = "referral_bonus"
	CategoryBonus         Category = "bonus"
	CategoryWithdrawal    Category = "withdrawal"
	CategoryRefund        Category = "refund"
	CategoryAdjustment    Category = "adjustment"
	CategoryOther         Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySurveyReward, CategoryAdReward, CategoryAppReward, CategoryReferralBonus,
		CategoryBonus, CategoryWithdrawal, CategoryRefund, CategoryAdjustment, CategoryOther:
		return true
	}
	return false
}

// PaymentMethod names the rail a movement used
type PaymentMethod string

const (
	PaymentMethodInternal     PaymentMethod = "internal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodCrypto       PaymentMethod = "crypto"
	PaymentMethodCard         PaymentMethod = "card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodInternal, PaymentMethodBankTransfer, PaymentMethodPaypal,
		PaymentMethodMobileMoney, PaymentMethodCrypto, PaymentMethodCard:
		return true
	}
	return false
}

// Transaction is one movement of money on a wallet. The amount is always
// positive; direction is carried by IsInflow.
type Transaction struct {
	ID                    uuid.UUID         `json:"id"`
	WalletID              uuid.UUID         `json:"wallet_id"`
	UserID                string            `json:"user_id"`
	Amount                decimal.Decimal   `json:"amount"`
	IsInflow              bool              `json:"is_inflow"`
	Currency              money.Currency    `json:"currency"`
	PaymentMethod         PaymentMethod     `json:"payment_method"`
	Category              Category          `json:"category"`
	Status                Status            `json:"status"`
	Description           string            `json:"description,omitempty"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	GatewayResponse       map[string]string `json:"gateway_response,omitempty"`
	Fee                   decimal.Decimal   `json:"fee"`
	Tax                   decimal.Decimal   `json:"tax"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	AdminNotes            string            `json:"admin_notes,omitempty"`
	IdempotencyKey        string            `json:"idempotency_key,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
	ProcessedAt           *time.Time        `json:"processed_at,omitempty"`
}

// Input carries the caller-supplied fields of a new movement.
type Input struct {
	Amount                decimal.Decimal
	IsInflow              bool
	Category              Category
	PaymentMethod         PaymentMethod
	Description           string
	ExternalTransactionID string
	GatewayResponse       map[string]string
	Fee                   decimal.Decimal
	Tax                   decimal.Decimal
	Metadata              map[string]string
	IdempotencyKey        string
}

// Validate checks the movement fields and normalizes the amounts.
func (in *Input) Validate() error {
	in.Amount = money.Round(in.Amount)
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.Category == "" {
		in.Category = CategoryOther
	}
	if !in.Category.Valid() {
		return ErrInvalidCategory
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = PaymentMethodInternal
	}
	if !in.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	in.Fee = money.Round(in.Fee)
	in.Tax = money.Round(in.Tax)
	if in.Fee.IsNegative() || in.Tax.IsNegative() {
		return ErrInvalidCharges
	}
	return nil
}

// New builds a transaction for a wallet from validated input.
func New(walletID uuid.UUID, userID string, currency money.Currency, in Input, status Status, now time.Time) *Transaction {
	t := &Transaction{
		ID:                    uuid.New(),
		WalletID:              walletID,
		UserID:                userID,
		Amount:                in.Amount,
		IsInflow:              in.IsInflow,
		Currency:              currency,
		PaymentMethod:         in.PaymentMethod,
		Category:              in.Category,
		Status:                status,
		Description:           in.Description,
		ExternalTransactionID: in.ExternalTransactionID,
		GatewayResponse:       in.GatewayResponse,
		Fee:                   in.Fee,
		Tax:                   in.Tax,
		Metadata:              in.Metadata,
		IdempotencyKey:        in.IdempotencyKey,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if status != StatusPending {
		processedAt := now
		t.ProcessedAt = &processedAt
	}
	return t
}

// Effect is the signed contribution of the transaction to its wallet balance.
func (t *Transaction) Effect() decimal.Decimal {
	return effectOf(t.Status, t.Amount, t.IsInflow)
}

func effectOf(status Status, amount decimal.Decimal, inflow bool) decimal.Decimal {
	if status != StatusSuccessful {
		return decimal.Zero
	}
	if inflow {
		return amount
	}
	return amount.Neg()
}

// SameMovement reports whether t records the same amount and direction, used
// to decide if an idempotent replay matches the original call.
func (t *Transaction) SameMovement(amount decimal.Decimal, inflow bool) bool {
	return t.IsInflow == inflow && t.Amount.Equal(money.Round(amount))
}

// Settled reports whether t currently counts towards the wallet balance.
func (t *Transaction) Settled() bool {
	return t.Status == StatusSuccessful
}

// Clone returns a deep copy safe to mutate independently.
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	c.GatewayResponse = cloneMap(t.GatewayResponse)
	c.Metadata = cloneMap(t.Metadata)
	if t.ProcessedAt != nil {
		p := *t.ProcessedAt
		c.ProcessedAt = &p
	}
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
