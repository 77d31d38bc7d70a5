package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/shared"
)

// Message stores event data for reliable message publishing
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	WalletID      uuid.UUID           `json:"wallet_id"`
	EventType     EventType           `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.EventID,
		WalletID:  event.WalletID,
		EventType: event.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		Attempts:  0,
		CreatedAt: event.OccurredAt,
	}, nil
}

func (m *Message) IncrementAttempts(now time.Time) {
	m.Attempts++
	m.LastAttemptAt = &now
}

func (m *Message) MarkAs(status shared.OutboxStatus, now time.Time) {
	m.Status = status
	m.LastAttemptAt = &now
}

// GetEvent extracts the event from the payload
func (m *Message) GetEvent() (*Event, error) {
	var event Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
