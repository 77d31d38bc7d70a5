package service

import (
	"context"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/metrics"
)

// WorkerPoolCreditService bounds the number of credits applied at once.
// Requests for the same wallet still serialize on the ledger's wallet lock.
type WorkerPoolCreditService struct {
	baseService CreditService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolCreditService(
	baseService CreditService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolCreditService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	metrics.WorkerPoolCapacity.Set(float64(pool.Cap()))
	return &WorkerPoolCreditService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ApplyRewardCredit runs the request on a pooled worker and waits for its result
func (s *WorkerPoolCreditService) ApplyRewardCredit(ctx context.Context, request *shared.RewardCreditRequest) error {
	logger := s.logger
	if request.CorrelationID != "" {
		logger = s.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Debug("Submitting reward credit to worker pool",
		"request_id", request.RequestID.String(),
		"wallet_id", request.WalletID.String(),
	)

	resultChan := make(chan error, 1)
	requestCopy := *request

	err := s.pool.Submit(func() {
		metrics.WorkerPoolRunning.Set(float64(s.pool.Running()))
		resultChan <- s.baseService.ApplyRewardCredit(ctx, &requestCopy)
	})
	if err != nil {
		logger.Error("Failed to submit reward credit to worker pool",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolCreditService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolCreditService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolCreditService) Capacity() int {
	return s.pool.Cap()
}
