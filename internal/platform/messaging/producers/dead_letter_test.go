package producers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDLQProducer_PublishToDLQ(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	dlqTopic := "test-dlq-topic"
	ctx := context.Background()
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("SuccessfulPublishToDLQ", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: dlqTopic,
			now:      func() time.Time { return fixed },
		}

		key := "original-key"
		originalMessageValue := []byte(`{"wallet_id":"not-a-uuid"}`)
		reason := "INVALID_ARGUMENT: wallet_id is required"

		mockWriter.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || string(msgs[0].Key) != key {
				return false
			}
			var payload map[string]string
			if err := json.Unmarshal(msgs[0].Value, &payload); err != nil {
				return false
			}
			return payload["original_key"] == key &&
				payload["original_value"] == string(originalMessageValue) &&
				payload["dlq_reason"] == reason &&
				payload["timestamp"] == "2026-03-10T12:00:00Z" &&
				string(msgs[0].Headers[0].Value) == reason
		})).Return(nil).Once()

		err := producer.PublishToDLQ(ctx, key, originalMessageValue, reason)
		require.NoError(t, err)
		mockWriter.AssertExpectations(t)
	})

	t.Run("PublishToDLQReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{
			logger:   logger,
			writer:   mockWriter,
			dlqTopic: dlqTopic,
			now:      time.Now,
		}
		writerError := errors.New("kafka DLQ write error")
		mockWriter.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).Return(writerError).Once()

		err := producer.PublishToDLQ(ctx, "fail-key", []byte("fail_payload"), "writer_error")
		assert.ErrorIs(t, err, writerError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("DisabledProducer", func(t *testing.T) {
		var disabled *DLQProducer
		assert.ErrorIs(t, disabled.PublishToDLQ(ctx, "k", []byte("v"), "r"), ErrDLQDisabled)

		noWriter := &DLQProducer{logger: logger, dlqTopic: dlqTopic}
		assert.ErrorIs(t, noWriter.PublishToDLQ(ctx, "k", []byte("v"), "r"), ErrDLQDisabled)
	})
}

func TestDLQProducer_Close(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	t.Run("SuccessfulClose", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: logger, writer: mockWriter, dlqTopic: "dlq"}
		mockWriter.On("Close").Return(nil).Once()

		require.NoError(t, producer.Close())
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseReturnsErrorOnWriterError", func(t *testing.T) {
		mockWriter := new(MockKafkaWriter)
		producer := &DLQProducer{logger: logger, writer: mockWriter, dlqTopic: "dlq"}
		closeError := errors.New("kafka DLQ close error")
		mockWriter.On("Close").Return(closeError).Once()

		assert.ErrorIs(t, producer.Close(), closeError)
		mockWriter.AssertExpectations(t)
	})

	t.Run("CloseWhenDisabled", func(t *testing.T) {
		var disabled *DLQProducer
		assert.NoError(t, disabled.Close())
	})
}
