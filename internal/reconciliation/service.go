// Package reconciliation detects drift between stored wallet balances and the
// sum of their successful transactions. Checks read a consistent snapshot
// without the wallet lock and record the outcome through the ledger engine,
// so a check never blocks money movement for longer than one short write.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/reconciliation"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/storage"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/metrics"
)

// Marker records a drift check under the wallet lock. It fails Conflict when
// the wallet version moved past observedVersion.
type Marker interface {
	MarkReconciled(ctx context.Context, walletID uuid.UUID, observedVersion int, computed, tolerance decimal.Decimal) (*wallet.Wallet, bool, error)
}

// Service reconciles single wallets and stale batches
type Service struct {
	store   storage.Store
	marker  Marker
	reports reconciliation.Repository
	cfg     config.ReconciliationConfig
	pool    *ants.Pool
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates a reconciliation service with a worker pool of poolSize
func NewService(
	store storage.Store,
	marker Marker,
	reports reconciliation.Repository,
	cfg *config.ReconciliationConfig,
	poolSize int,
	logger *slog.Logger,
) (*Service, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciliation worker pool: %w", err)
	}

	return &Service{
		store:   store,
		marker:  marker,
		reports: reports,
		cfg:     *cfg,
		pool:    pool,
		now:     time.Now,
		logger:  logger,
	}, nil
}

type snapshot struct {
	wallet *wallet.Wallet
	totals transaction.Totals
}

func (s *Service) snapshot(ctx context.Context, walletID uuid.UUID) (snapshot, error) {
	var snap snapshot
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, repos storage.Repositories) error {
		w, err := repos.Wallets.GetByID(ctx, walletID)
		if err != nil {
			return err
		}
		totals, err := repos.Transactions.SumSuccessful(ctx, walletID)
		if err != nil {
			return err
		}
		snap = snapshot{wallet: w, totals: totals}
		return nil
	})
	return snap, err
}

// ReconcileWallet checks one wallet and stores the report. A wallet that moves
// while it is checked is read again, up to the configured retries. A wallet
// closed during the check is reported as skipped and left untouched.
func (s *Service) ReconcileWallet(ctx context.Context, walletID uuid.UUID) (*reconciliation.Report, error) {
	logger := s.logger.With("wallet_id", walletID.String())
	retries := s.cfg.MaxVersionRetries
	if retries < 1 {
		retries = 1
	}

	for attempt := 1; ; attempt++ {
		snap, err := s.snapshot(ctx, walletID)
		if err != nil {
			metrics.RecordReconciliation("error", false)
			return nil, err
		}

		computed := money.Round(snap.totals.Net)
		report := s.newReport(snap, computed, attempt)

		marked, discrepant, err := s.marker.MarkReconciled(ctx, walletID, snap.wallet.Version, computed, s.cfg.Tolerance)
		switch {
		case err == nil:
			report.WalletVersion = marked.Version
			report.Outcome = reconciliation.OutcomeMatched
			if discrepant {
				report.Outcome = reconciliation.OutcomeDiscrepancy
				report.FlagReason = marked.FlagReason
			}
		case errors.Is(err, shared.ErrWalletNotActive):
			report.Outcome = reconciliation.OutcomeSkipped
		case errors.Is(err, shared.ErrConflict) && attempt < retries:
			logger.Debug("Wallet moved during reconciliation, retrying", "attempt", attempt, "observed_version", snap.wallet.Version)
			continue
		default:
			metrics.RecordReconciliation("error", false)
			logger.Error("Failed to reconcile wallet", "attempt", attempt, "error", err)
			return nil, err
		}

		s.save(ctx, logger, report)
		metrics.RecordReconciliation(string(report.Outcome), discrepant)
		if discrepant {
			logger.Warn("Wallet balance discrepancy detected",
				"stored_balance", money.Format(report.StoredBalance),
				"computed_balance", money.Format(report.ComputedBalance),
			)
		} else {
			logger.Info("Wallet reconciled", "outcome", report.Outcome, "attempts", attempt)
		}
		return report, nil
	}
}

func (s *Service) newReport(snap snapshot, computed decimal.Decimal, attempt int) *reconciliation.Report {
	return &reconciliation.Report{
		ID:               uuid.New(),
		WalletID:         snap.wallet.ID,
		UserID:           snap.wallet.UserID,
		StoredBalance:    snap.wallet.Balance,
		ComputedBalance:  computed,
		Difference:       money.Sub(snap.wallet.Balance, computed),
		Tolerance:        s.cfg.Tolerance,
		TransactionCount: snap.totals.Count,
		WalletVersion:    snap.wallet.Version,
		Attempts:         attempt,
		ReconciledAt:     s.now().UTC(),
	}
}

// save stores the report. The wallet is already marked, so a failed write
// only loses the audit record.
func (s *Service) save(ctx context.Context, logger *slog.Logger, report *reconciliation.Report) {
	if s.reports == nil {
		return
	}
	if err := s.reports.Save(ctx, report); err != nil {
		logger.Error("Failed to save reconciliation report", "report_id", report.ID.String(), "error", err)
	}
}

// RunBatch reconciles open wallets that were never checked or whose last check
// is older than the staleness window, at most BatchSize of them.
func (s *Service) RunBatch(ctx context.Context) (reconciliation.BatchResult, error) {
	var result reconciliation.BatchResult

	cutoff := s.now().UTC().Add(-s.cfg.StalenessWindow)
	ids, err := s.store.Repositories().Wallets.ListStale(ctx, cutoff, s.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list stale wallets: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	record := func(report *reconciliation.Report, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Checked++
		switch {
		case err != nil:
			result.Failed++
		case report.IsDiscrepant():
			result.Discrepant++
		}
	}

	for _, id := range ids {
		id := id
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			record(s.ReconcileWallet(ctx, id))
		}); err != nil {
			wg.Done()
			s.logger.Error("Failed to submit reconciliation task", "wallet_id", id.String(), "error", err)
			record(nil, err)
		}
	}
	wg.Wait()

	s.logger.Info("Reconciliation batch finished",
		"checked", result.Checked,
		"discrepant", result.Discrepant,
		"failed", result.Failed,
	)
	return result, nil
}

// LatestReport returns the most recent report of a wallet
func (s *Service) LatestReport(ctx context.Context, walletID uuid.UUID) (*reconciliation.Report, error) {
	if s.reports == nil {
		return nil, reconciliation.ErrReportNotFound{WalletID: walletID}
	}
	return s.reports.GetLatest(ctx, walletID)
}

// Reports returns a page of a wallet's reports, newest first
func (s *Service) Reports(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*reconciliation.Report, error) {
	if s.reports == nil {
		return []*reconciliation.Report{}, nil
	}
	return s.reports.ListByWallet(ctx, walletID, limit, offset)
}

// Shutdown releases the worker pool
func (s *Service) Shutdown() {
	s.logger.Info("Shutting down reconciliation worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}
