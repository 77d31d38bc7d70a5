package ledger_api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wallet-ledger/internal/ledger_api/handler"
	"github.com/wallet-ledger/internal/ledger_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	transactionHandler *handler.TransactionHandler,
	reconciliationHandler *handler.ReconciliationHandler,
	healthHandler *handler.HealthHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	v1 := r.Group("/api/v1")
	{
		wallets := v1.Group("/wallets")
		{
			wallets.POST("", walletHandler.Create)
			wallets.GET("/:id", walletHandler.GetByID)

			wallets.POST("/:id/credit", walletHandler.Credit)
			wallets.POST("/:id/debit", walletHandler.Debit)
			wallets.POST("/:id/credits/reserve", walletHandler.ReserveCredit)
			wallets.POST("/:id/credits/confirm", walletHandler.ConfirmCredit)
			wallets.POST("/:id/credits/release", walletHandler.ReleaseCredit)
			wallets.POST("/:id/debits/reserve", walletHandler.ReserveDebit)
			wallets.POST("/:id/debits/confirm", walletHandler.ConfirmDebit)
			wallets.POST("/:id/debits/release", walletHandler.ReleaseDebit)

			wallets.POST("/:id/freeze", walletHandler.Freeze)
			wallets.POST("/:id/unfreeze", walletHandler.Unfreeze)
			wallets.POST("/:id/suspend", walletHandler.Suspend)
			wallets.POST("/:id/activate", walletHandler.Activate)
			wallets.POST("/:id/close", walletHandler.Close)

			wallets.PUT("/:id/pin", walletHandler.SetPin)
			wallets.POST("/:id/pin/verify", walletHandler.VerifyPin)

			wallets.GET("/:id/transactions", transactionHandler.GetByWalletID)
			wallets.GET("/:id/summary", transactionHandler.Summary)
			wallets.GET("/:id/withdrawal-usage", walletHandler.WithdrawalUsage)

			wallets.POST("/:id/reconcile", reconciliationHandler.Reconcile)
			wallets.GET("/:id/reconciliations", reconciliationHandler.List)
			wallets.GET("/:id/reconciliations/latest", reconciliationHandler.Latest)
			wallets.POST("/:id/correct-balance", walletHandler.CorrectBalance)
		}

		v1.GET("/users/:user_id/wallet", walletHandler.GetByUserID)

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", transactionHandler.Create)
			transactions.GET("/:id", transactionHandler.GetByID)
			transactions.PATCH("/:id", transactionHandler.Update)
			transactions.DELETE("/:id", transactionHandler.Delete)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/reconciliation/run", reconciliationHandler.RunBatch)
		}
	}

	r.GET("/health", healthHandler.Live)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
