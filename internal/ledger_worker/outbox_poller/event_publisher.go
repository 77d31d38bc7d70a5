package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wallet-ledger/internal/domain/outbox"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/platform/messaging/producers"
)

// EventPublisher relays one outbox message to the wallet events topic
type EventPublisher interface {
	Publish(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher implements EventPublisher on top of a Kafka producer
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.EventPublisher
	logger     *slog.Logger
}

// NewKafkaEventPublisher creates a new publisher
func NewKafkaEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.EventPublisher,
	logger *slog.Logger,
) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// Publish writes the message to Kafka and marks it PROCESSED. A message whose
// payload is not a wallet event can never be delivered and is marked
// FAILED_TO_PUBLISH straight away.
func (p *KafkaEventPublisher) Publish(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal wallet event from outbox payload",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	if err := p.producer.PublishEvent(ctx, message); err != nil {
		return fmt.Errorf("failed to publish outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "event_id", message.EventID.String(), "error", err,
		)
		return fmt.Errorf("event %s published, but failed to mark outbox %d as PROCESSED: %w", message.EventID, message.ID, err)
	}

	logger.Info("Outbox message published and marked as PROCESSED",
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"event_type", message.EventType,
		"wallet_id", message.WalletID.String(),
	)
	return nil
}
