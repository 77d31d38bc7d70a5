package consumers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wallet-ledger/internal/config"
)

const fetchBackoff = time.Second

type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// KafkaReader wraps kafka.Reader methods for testing
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using a consumer group reader. Offsets are
// committed only after the handler succeeded, so failed messages are redelivered.
type KafkaConsumer struct {
	reader  KafkaReader
	topic   string
	groupID string
	logger  *slog.Logger
	done    chan struct{}
}

// NewKafkaConsumer creates a consumer group reader on topic
func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: kafka.FirstOffset,
	})
	return newKafkaConsumer(logger, reader, topic, cfg.ConsumerGroup)
}

func newKafkaConsumer(logger *slog.Logger, reader KafkaReader, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:  reader,
		topic:   topic,
		groupID: groupID,
		logger:  logger.With("topic", topic, "group_id", groupID),
		done:    make(chan struct{}),
	}
}

// Subscribe starts the fetch loop in the background and returns immediately
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic")

	go func() {
		defer close(c.done)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					c.logger.Info("Context canceled, stopping consumer")
					return
				}
				c.logger.Error("Failed to fetch message from Kafka", "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(fetchBackoff):
				}
				continue
			}

			c.handle(ctx, msg, handler)
		}
	}()
	return nil
}

func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message, handler MessageHandler) {
	logger := c.logger.With("partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))
	logger.Debug("Received message from Kafka")

	if err := handler(ctx, msg.Key, msg.Value); err != nil {
		logger.Error("Failed to process message, will not commit offset", "error", err)
		return
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.Error("Failed to commit message after successful processing", "error", err)
		return
	}
	logger.Debug("Message committed successfully")
}

// Done is closed when the fetch loop has exited
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
