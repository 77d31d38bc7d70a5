package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	OperationsTotal.Reset()
	OperationDuration.Reset()

	RecordOperation("debit", "OK", 0.01)
	RecordOperation("debit", "OK", 0.02)
	RecordOperation("debit", "INSUFFICIENT_FUNDS", 0.01)

	assert.Equal(t, float64(2), testutil.ToFloat64(OperationsTotal.WithLabelValues("debit", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OperationsTotal.WithLabelValues("debit", "INSUFFICIENT_FUNDS")))
	assert.Equal(t, 1, testutil.CollectAndCount(OperationDuration))
}

func TestRecordReconciliation(t *testing.T) {
	ReconciliationRunsTotal.Reset()
	before := testutil.ToFloat64(ReconciliationDiscrepanciesTotal)

	RecordReconciliation("matched", false)
	RecordReconciliation("discrepancy", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(ReconciliationRunsTotal.WithLabelValues("matched")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ReconciliationRunsTotal.WithLabelValues("discrepancy")))
	assert.Equal(t, before+1, testutil.ToFloat64(ReconciliationDiscrepanciesTotal))
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()

	RecordHTTPRequest("POST", "/api/v1/wallets/:id/debit", "200", 0.1)
	RecordHTTPRequest("POST", "/api/v1/wallets/:id/debit", "422", 0.05)

	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/wallets/:id/debit", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/wallets/:id/debit", "422")))
}

func TestRecordWorkerMetrics(t *testing.T) {
	OutboxPublishedTotal.Reset()
	RewardCreditsConsumedTotal.Reset()

	RecordOutboxMessage("PROCESSED")
	RecordRewardCredit("dlq")
	RecordRewardCredit("dlq")

	assert.Equal(t, float64(1), testutil.ToFloat64(OutboxPublishedTotal.WithLabelValues("PROCESSED")))
	assert.Equal(t, float64(2), testutil.ToFloat64(RewardCreditsConsumedTotal.WithLabelValues("dlq")))
}
