package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wallet-ledger/internal/domain/shared"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/ledger_api/middleware"
	"github.com/wallet-ledger/internal/ledger_api/service"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

func parseTime(field, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", shared.ErrInvalidArgument, field)
	}
	return t.UTC(), nil
}

// Create records a pending transaction. The balance moves when it is
// later updated to successful.
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	walletID, err := uuid.Parse(req.WalletID)
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	txn, err := h.transactionService.CreatePendingTransaction(
		c.Request.Context(),
		walletID,
		req.input(c.GetHeader(IdempotencyKeyHeader)),
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		RespondDomainError(c, h.logger, "create_pending_transaction", err)
		return
	}
	RespondCreated(c, mapTransactionToResponse(txn))
}

// GetByID retrieves a transaction by its ID
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	txn, err := h.transactionService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "get_transaction", err)
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// Update applies a partial change; the wallet balance follows the new effect
func (h *TransactionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	var update transaction.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txn, err := h.transactionService.UpdateTransaction(c.Request.Context(), id, update, middleware.GetCorrelationID(c))
	if err != nil {
		RespondDomainError(c, h.logger, "update_transaction", err)
		return
	}
	RespondOK(c, mapTransactionToResponse(txn))
}

// Delete removes a transaction and reverses its balance effect
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	if err := h.transactionService.DeleteTransaction(c.Request.Context(), id, middleware.GetCorrelationID(c)); err != nil {
		RespondDomainError(c, h.logger, "delete_transaction", err)
		return
	}
	RespondNoContent(c)
}

// GetByWalletID lists a wallet's transactions with pagination and filters
func (h *TransactionHandler) GetByWalletID(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := transaction.Filter{
		WalletID: walletID,
		Status:   transaction.Status(query.Status),
		Category: transaction.Category(query.Category),
		Limit:    query.PerPage,
		Offset:   query.offset(),
	}
	if query.Direction != "" {
		inflow := query.Direction == "inflow"
		filter.IsInflow = &inflow
	}
	if filter.From, err = parseTime("from", query.From); err != nil {
		RespondDomainError(c, h.logger, "list_transactions", err)
		return
	}
	if filter.To, err = parseTime("to", query.To); err != nil {
		RespondDomainError(c, h.logger, "list_transactions", err)
		return
	}

	txns, total, err := h.transactionService.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		RespondDomainError(c, h.logger, "list_transactions", err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, mapTransactionsToResponse(txns), query.Page, query.PerPage, total)
}

// Summary aggregates a wallet's transactions over [from, to)
func (h *TransactionHandler) Summary(c *gin.Context) {
	walletID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return
	}

	var query PeriodQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	from, err := parseTime("from", query.From)
	if err != nil {
		RespondDomainError(c, h.logger, "summarize", err)
		return
	}
	to, err := parseTime("to", query.To)
	if err != nil {
		RespondDomainError(c, h.logger, "summarize", err)
		return
	}

	summary, err := h.transactionService.Summarize(c.Request.Context(), walletID, from, to)
	if err != nil {
		RespondDomainError(c, h.logger, "summarize", err)
		return
	}
	RespondOK(c, summary)
}
