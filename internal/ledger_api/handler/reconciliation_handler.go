package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/reconciliation"
	"github.com/wallet-ledger/internal/ledger_api/service"
)

// ReconciliationHandler exposes drift checks and their reports
type ReconciliationHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Reconcile checks one wallet now and returns the report
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	report, err := h.reconciliationService.ReconcileWallet(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "reconcile_wallet", err)
		return
	}
	RespondOK(c, mapReportToResponse(report))
}

// Latest returns the most recent report of a wallet
func (h *ReconciliationHandler) Latest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	report, err := h.reconciliationService.LatestReport(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "latest_report", err)
		return
	}
	RespondOK(c, mapReportToResponse(report))
}

// List returns a page of a wallet's reports, newest first
func (h *ReconciliationHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	var page PaginationParams
	if err := c.ShouldBindQuery(&page); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	reports, err := h.reconciliationService.Reports(c.Request.Context(), id, page.PerPage, page.offset())
	if err != nil {
		RespondDomainError(c, h.logger, "list_reports", err)
		return
	}
	RespondOK(c, mapReportsToResponse(reports))
}

// RunBatch reconciles stale wallets immediately
func (h *ReconciliationHandler) RunBatch(c *gin.Context) {
	result, err := h.reconciliationService.RunBatch(c.Request.Context())
	if err != nil {
		RespondDomainError(c, h.logger, "run_batch", err)
		return
	}
	h.logger.Info("Reconciliation batch triggered over HTTP",
		"checked", result.Checked,
		"discrepant", result.Discrepant,
		"failed", result.Failed,
	)
	RespondOK(c, result)
}

func mapReportsToResponse(reports []*reconciliation.Report) []ReportResponse {
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, mapReportToResponse(r))
	}
	return out
}
