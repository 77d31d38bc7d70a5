package reconciliation

import (
	"context"
	"log/slog"
	"time"

	"github.com/wallet-ledger/internal/domain/reconciliation"
)

// BatchRunner runs one reconciliation batch
type BatchRunner interface {
	RunBatch(ctx context.Context) (reconciliation.BatchResult, error)
}

// Scheduler runs reconciliation batches on a fixed interval
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler ticking every interval
func NewScheduler(logger *slog.Logger, runner BatchRunner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks, running one batch per tick until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation scheduler", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.runner.RunBatch(ctx); err != nil {
				s.logger.Error("Reconciliation batch failed", "error", err)
			}
		}
	}
}
