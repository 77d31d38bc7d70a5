package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total number of ledger engine operations by result kind",
		},
		[]string{"operation", "result"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger engine operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledger_lock_wait_seconds",
			Help:    "Time spent waiting for the per-wallet lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	ReconciliationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reconciliation_runs_total",
			Help: "Total number of wallet reconciliations by outcome",
		},
		[]string{"result"},
	)

	ReconciliationDiscrepanciesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_reconciliation_discrepancies_total",
			Help: "Total number of wallets flagged for a balance discrepancy",
		},
	)

	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_outbox_messages_total",
			Help: "Total number of outbox messages handled by the poller",
		},
		[]string{"status"},
	)

	RewardCreditsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_reward_credits_consumed_total",
			Help: "Total number of reward credit requests consumed from Kafka",
		},
		[]string{"result"},
	)

	WorkerPoolCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_worker_pool_capacity",
			Help: "Capacity of the reward credit worker pool",
		},
	)

	WorkerPoolRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_worker_pool_running",
			Help: "Reward credit workers running at the last submission",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledger_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// RecordOperation counts one engine call. result is the error kind name, or OK.
func RecordOperation(operation, result string, duration float64) {
	OperationsTotal.WithLabelValues(operation, result).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

func RecordLockWait(seconds float64) {
	LockWaitDuration.Observe(seconds)
}

// RecordReconciliation counts one wallet check. result is an outcome or "error".
func RecordReconciliation(result string, discrepant bool) {
	ReconciliationRunsTotal.WithLabelValues(result).Inc()
	if discrepant {
		ReconciliationDiscrepanciesTotal.Inc()
	}
}

func RecordOutboxMessage(status string) {
	OutboxPublishedTotal.WithLabelValues(status).Inc()
}

func RecordRewardCredit(result string) {
	RewardCreditsConsumedTotal.WithLabelValues(result).Inc()
}

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}
