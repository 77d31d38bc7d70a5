package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
)

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet("user-9", money.USD, wallet.Limits{MaxBalance: decimal.NewFromInt(1000)}, time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Credit(decimal.NewFromInt(40)))
	return w
}

func TestNewMessage(t *testing.T) {
	t.Run("SuccessfulCreation", func(t *testing.T) {
		w := newWallet(t)
		txn := transaction.New(w.ID, w.UserID, w.Currency, transaction.Input{
			Amount:   decimal.NewFromInt(40),
			IsInflow: true,
			Category: transaction.CategoryBonus,
		}, transaction.StatusSuccessful, time.Now())
		occurred := time.Now().Truncate(time.Millisecond)

		event := NewEvent(EventWalletCredited, w, txn, occurred).WithCorrelationID("corr-1")
		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.Equal(t, event.EventID, msg.EventID)
		assert.Equal(t, w.ID, msg.WalletID)
		assert.Equal(t, EventWalletCredited, msg.EventType)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		assert.Equal(t, 0, msg.Attempts)
		assert.Nil(t, msg.LastAttemptAt)
		assert.Equal(t, occurred, msg.CreatedAt)

		// Check payload
		var raw map[string]any
		require.NoError(t, json.Unmarshal(msg.Payload, &raw))
		assert.Equal(t, "wallet.credited", raw["type"])
		assert.Equal(t, "40", raw["balance"])

		decoded, err := msg.GetEvent()
		require.NoError(t, err)
		assert.Equal(t, "corr-1", decoded.CorrelationID)
		require.NotNil(t, decoded.Transaction)
		assert.Equal(t, txn.ID, decoded.Transaction.ID)
		assert.True(t, occurred.Equal(decoded.OccurredAt))
	})

	t.Run("HoldEventCarriesAmount", func(t *testing.T) {
		w := newWallet(t)
		event := NewEvent(EventWalletDebitReserved, w, nil, time.Now()).WithAmount(decimal.NewFromInt(5))
		msg, err := NewMessage(event)
		require.NoError(t, err)

		decoded, err := msg.GetEvent()
		require.NoError(t, err)
		assert.True(t, decoded.Amount.Valid)
		assert.True(t, decimal.NewFromInt(5).Equal(decoded.Amount.Decimal))
		assert.Nil(t, decoded.Transaction)
	})
}

func TestMessage_StateChanges(t *testing.T) {
	now := time.Now()
	msg := &Message{Status: shared.OutboxStatusPending}

	msg.IncrementAttempts(now)
	assert.Equal(t, 1, msg.Attempts)
	require.NotNil(t, msg.LastAttemptAt)

	msg.MarkAs(shared.OutboxStatusProcessed, now.Add(time.Second))
	assert.Equal(t, shared.OutboxStatusProcessed, msg.Status)
	assert.Equal(t, now.Add(time.Second), *msg.LastAttemptAt)
}

func TestMessage_GetEventMalformed(t *testing.T) {
	msg := &Message{Payload: json.RawMessage(`{"type":`)}
	_, err := msg.GetEvent()
	assert.Error(t, err)
}
