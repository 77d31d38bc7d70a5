package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wallet-ledger/internal/domain/money"
	"github.com/wallet-ledger/internal/domain/transaction"
	"github.com/wallet-ledger/internal/domain/wallet"
	"github.com/wallet-ledger/internal/ledger"
	"github.com/wallet-ledger/internal/ledger_api/middleware"
	"github.com/wallet-ledger/internal/ledger_api/service"
)

// WalletHandler handles HTTP requests for wallet operations
type WalletHandler struct {
	walletService service.WalletService
	logger        *slog.Logger
	now           func() time.Time
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(logger *slog.Logger, walletService service.WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		logger:        logger,
		now:           time.Now,
	}
}

// walletID parses the :id path parameter, answering 400 when it is malformed
func (h *WalletHandler) walletID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid wallet ID")
		return uuid.Nil, false
	}
	return id, true
}

// Create opens a wallet for a user. Omitted limits take the configured defaults.
func (h *WalletHandler) Create(c *gin.Context) {
	var req CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var limits *wallet.Limits
	if req.Limits != nil {
		l := req.Limits.apply(h.walletService.DefaultLimits())
		limits = &l
	}

	currency, _ := money.ParseCurrency(req.Currency)
	w, err := h.walletService.CreateWallet(c.Request.Context(), req.UserID, currency, limits)
	if err != nil {
		RespondDomainError(c, h.logger, "create_wallet", err)
		return
	}
	RespondCreated(c, mapWalletToResponse(w))
}

// GetByID retrieves a wallet by its ID
func (h *WalletHandler) GetByID(c *gin.Context) {
	id, ok := h.walletID(c)
	if !ok {
		return
	}

	w, err := h.walletService.GetWallet(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, h.logger, "get_wallet", err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

// GetByUserID retrieves the live wallet of a user
func (h *WalletHandler) GetByUserID(c *gin.Context) {
	w, err := h.walletService.GetWalletByUserID(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		RespondDomainError(c, h.logger, "get_wallet_by_user", err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

type settleFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, *transaction.Transaction, error)

type reserveFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)

type releaseFunc func(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, meta ledger.MovementMeta) (*wallet.Wallet, error)

// movement binds the path id and movement body shared by every money call
func (h *WalletHandler) movement(c *gin.Context) (uuid.UUID, decimal.Decimal, ledger.MovementMeta, bool) {
	id, ok := h.walletID(c)
	if !ok {
		return uuid.Nil, decimal.Zero, ledger.MovementMeta{}, false
	}

	var req MovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return uuid.Nil, decimal.Zero, ledger.MovementMeta{}, false
	}

	meta, err := req.meta(c.GetHeader(IdempotencyKeyHeader), middleware.GetCorrelationID(c))
	if err != nil {
		RespondDomainError(c, h.logger, "bind_movement", err)
		return uuid.Nil, decimal.Zero, ledger.MovementMeta{}, false
	}
	return id, req.Amount, meta, true
}

func (h *WalletHandler) settle(op string, fn settleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, amount, meta, ok := h.movement(c)
		if !ok {
			return
		}

		w, txn, err := fn(c.Request.Context(), id, amount, meta)
		if err != nil {
			RespondDomainError(c, h.logger, op, err)
			return
		}
		RespondOK(c, MovementResponse{
			Wallet:      mapWalletToResponse(w),
			Transaction: mapTransactionToResponse(txn),
		})
	}
}

func (h *WalletHandler) reserve(op string, fn reserveFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, amount, meta, ok := h.movement(c)
		if !ok {
			return
		}

		w, err := fn(c.Request.Context(), id, amount, meta)
		if err != nil {
			RespondDomainError(c, h.logger, op, err)
			return
		}
		RespondOK(c, mapWalletToResponse(w))
	}
}

func (h *WalletHandler) release(op string, fn releaseFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.walletID(c)
		if !ok {
			return
		}

		var req ReleaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		meta := ledger.MovementMeta{Category: req.Category, CorrelationID: middleware.GetCorrelationID(c)}
		w, err := fn(c.Request.Context(), id, req.Amount, meta)
		if err != nil {
			RespondDomainError(c, h.logger, op, err)
			return
		}
		RespondOK(c, mapWalletToResponse(w))
	}
}

// Credit adds settled money to a wallet
func (h *WalletHandler) Credit(c *gin.Context) {
	h.settle("credit", h.walletService.Credit)(c)
}

// Debit removes settled money from a wallet
func (h *WalletHandler) Debit(c *gin.Context) {
	h.settle("debit", h.walletService.Debit)(c)
}

func (h *WalletHandler) ReserveCredit(c *gin.Context) {
	h.reserve("reserve_credit", h.walletService.ReserveCredit)(c)
}

func (h *WalletHandler) ReserveDebit(c *gin.Context) {
	h.reserve("reserve_debit", h.walletService.ReserveDebit)(c)
}

func (h *WalletHandler) ConfirmCredit(c *gin.Context) {
	h.settle("confirm_pending_credit", h.walletService.ConfirmPendingCredit)(c)
}

func (h *WalletHandler) ConfirmDebit(c *gin.Context) {
	h.settle("confirm_pending_debit", h.walletService.ConfirmPendingDebit)(c)
}

func (h *WalletHandler) ReleaseCredit(c *gin.Context) {
	h.release("release_pending_credit", h.walletService.ReleasePendingCredit)(c)
}

func (h *WalletHandler) ReleaseDebit(c *gin.Context) {
	h.release("release_pending_debit", h.walletService.ReleasePendingDebit)(c)
}

type statusFunc func(ctx context.Context, walletID uuid.UUID, reason string) (*wallet.Wallet, error)

func (h *WalletHandler) changeStatus(op string, fn statusFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.walletID(c)
		if !ok {
			return
		}

		var req StatusChangeRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				RespondBadRequest(c, "Invalid request body: "+err.Error())
				return
			}
		}

		w, err := fn(c.Request.Context(), id, req.Reason)
		if err != nil {
			RespondDomainError(c, h.logger, op, err)
			return
		}
		RespondOK(c, mapWalletToResponse(w))
	}
}

func (h *WalletHandler) Freeze(c *gin.Context) {
	h.changeStatus("freeze", h.walletService.Freeze)(c)
}

func (h *WalletHandler) Unfreeze(c *gin.Context) {
	h.changeStatus("unfreeze", h.walletService.Unfreeze)(c)
}

func (h *WalletHandler) Suspend(c *gin.Context) {
	h.changeStatus("suspend", h.walletService.Suspend)(c)
}

func (h *WalletHandler) Activate(c *gin.Context) {
	h.changeStatus("activate", h.walletService.Activate)(c)
}

// Close permanently closes a wallet
func (h *WalletHandler) Close(c *gin.Context) {
	h.changeStatus("close", h.walletService.Close)(c)
}

// SetPin sets or replaces the wallet PIN
func (h *WalletHandler) SetPin(c *gin.Context) {
	id, ok := h.walletID(c)
	if !ok {
		return
	}

	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.walletService.SetPin(c.Request.Context(), id, req.Pin); err != nil {
		RespondDomainError(c, h.logger, "set_pin", err)
		return
	}
	RespondNoContent(c)
}

// VerifyPin checks a PIN. Failed attempts count towards the lockout.
func (h *WalletHandler) VerifyPin(c *gin.Context) {
	id, ok := h.walletID(c)
	if !ok {
		return
	}

	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.walletService.VerifyPin(c.Request.Context(), id, req.Pin); err != nil {
		RespondDomainError(c, h.logger, "verify_pin", err)
		return
	}
	RespondOK(c, gin.H{"verified": true})
}

// CorrectBalance resets the balance and counters to the transaction log
func (h *WalletHandler) CorrectBalance(c *gin.Context) {
	id, ok := h.walletID(c)
	if !ok {
		return
	}

	var req CorrectBalanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	w, err := h.walletService.CorrectBalance(c.Request.Context(), id, req.Note)
	if err != nil {
		RespondDomainError(c, h.logger, "correct_balance", err)
		return
	}
	RespondOK(c, mapWalletToResponse(w))
}

// WithdrawalUsage reports today's and this month's withdrawals against the limits
func (h *WalletHandler) WithdrawalUsage(c *gin.Context) {
	id, ok := h.walletID(c)
	if !ok {
		return
	}

	usage, err := h.walletService.WithdrawalUsage(c.Request.Context(), id, h.now())
	if err != nil {
		RespondDomainError(c, h.logger, "withdrawal_usage", err)
		return
	}
	RespondOK(c, mapUsageToResponse(usage))
}
