package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/ledger_worker/service"
	"github.com/wallet-ledger/internal/metrics"
	"github.com/wallet-ledger/internal/platform/messaging/producers"
)

// RewardCreditHandler handles reward credit requests consumed from Kafka.
// Requests the ledger will never accept are parked on the DLQ and committed.
// Transient failures are returned so the offset stays uncommitted.
type RewardCreditHandler struct {
	creditService service.CreditService
	producer      producers.DeadLetterPublisher
	logger        *slog.Logger
}

// NewRewardCreditHandler creates a new handler
func NewRewardCreditHandler(
	logger *slog.Logger,
	creditService service.CreditService,
	producer producers.DeadLetterPublisher,
) *RewardCreditHandler {
	return &RewardCreditHandler{
		creditService: creditService,
		producer:      producer,
		logger:        logger,
	}
}

// HandleMessage processes one Kafka message
func (h *RewardCreditHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.RewardCreditRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal reward credit request from Kafka message",
			"error", err,
			"message_key", string(key),
		)
		return h.park(ctx, key, value, shared.DLQReasonMalformed, err)
	}

	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received reward credit request",
		"request_id", request.RequestID.String(),
		"wallet_id", request.WalletID.String(),
		"category", request.Category,
		"amount", request.Amount.String(),
	)

	err := h.creditService.ApplyRewardCredit(ctx, &request)
	switch {
	case err == nil:
		metrics.RecordRewardCredit("applied")
		logger.Info("Reward credit request processed", "request_id", request.RequestID.String())
		return nil
	case rejected(err):
		logger.Warn("Reward credit request rejected",
			"request_id", request.RequestID.String(),
			"kind", shared.KindName(err),
			"error", err,
		)
		reason := shared.DLQReasonRejected
		if shared.KindOf(err) == shared.ErrInvalidArgument {
			reason = shared.DLQReasonInvalidRequest
		}
		return h.park(ctx, key, value, reason, err)
	default:
		metrics.RecordRewardCredit("retry")
		logger.Error("Failed to apply reward credit, leaving for redelivery",
			"request_id", request.RequestID.String(),
			"kind", shared.KindName(err),
			"error", err,
		)
		return fmt.Errorf("applying reward credit %s failed: %w", request.RequestID.String(), err)
	}
}

// park publishes the raw message to the DLQ. When no DLQ is configured or the
// publish fails, the cause is returned and the message is redelivered.
func (h *RewardCreditHandler) park(ctx context.Context, key, value []byte, reason shared.DLQReason, cause error) error {
	if h.producer == nil {
		metrics.RecordRewardCredit("retry")
		return fmt.Errorf("%s without DLQ configured: %w", reason, cause)
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); err != nil {
		metrics.RecordRewardCredit("retry")
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", string(key),
		)
		return fmt.Errorf("%s and DLQ publish failed: %w", reason, cause)
	}

	metrics.RecordRewardCredit("dlq")
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
	return nil
}

// rejected reports whether redelivering the request can never succeed
func rejected(err error) bool {
	if shared.IsTerminal(err) || errors.Is(err, transaction.ErrIdempotencyKeyReuse) {
		return true
	}
	switch shared.KindOf(err) {
	case shared.ErrInvalidArgument, shared.ErrNotFound, shared.ErrAlreadyExists:
		return true
	}
	return false
}
