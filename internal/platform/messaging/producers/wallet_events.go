package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/domain/outbox"
)

const (
	headerEventType = "event-type"
	headerEventID   = "event-id"
)

// WalletEventProducer publishes wallet events keyed by wallet id, so every
// consumer sees the events of one wallet in commit order.
type WalletEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewWalletEventProducer ensures the wallet events topic exists and opens a
// synchronous writer. The outbox row is only marked processed after the
// broker acknowledged the write, so the writer waits for all replicas.
func NewWalletEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*WalletEventProducer, error) {
	if cfg.WalletEventsTopic == "" {
		return nil, fmt.Errorf("kafka wallet events topic is not configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for wallet event producer: %w", err)
	}
	defer conn.Close()

	if err := ensureTopic(conn, cfg.WalletEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet events topic %s exists: %w", cfg.WalletEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.WalletEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &WalletEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.WalletEventsTopic,
	}, nil
}

// PublishEvent writes the stored event payload as is
func (p *WalletEventProducer) PublishEvent(ctx context.Context, message *outbox.Message) error {
	msg := kafka.Message{
		Key:   []byte(message.WalletID.String()),
		Value: message.Payload,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(message.EventType)},
			{Key: headerEventID, Value: []byte(message.EventID.String())},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish wallet event",
			"topic", p.topic,
			"outbox_id", message.ID,
			"event_type", message.EventType,
			"error", err,
		)
		return fmt.Errorf("failed to publish wallet event %d to %s: %w", message.ID, p.topic, err)
	}

	p.logger.Debug("Published wallet event",
		"topic", p.topic,
		"outbox_id", message.ID,
		"event_type", message.EventType,
		"wallet_id", message.WalletID.String(),
	)
	return nil
}

func (p *WalletEventProducer) Close() error {
	p.logger.Info("Closing wallet event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close wallet event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
