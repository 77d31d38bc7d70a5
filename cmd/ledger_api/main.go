package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/data/mongo"
	"github.com/wallet-ledger/internal/data/postgres"
	"github.com/wallet-ledger/internal/data/redis"
	"github.com/wallet-ledger/internal/ledger"
	"github.com/wallet-ledger/internal/ledger_api"
	"github.com/wallet-ledger/internal/ledger_api/handler"
	"github.com/wallet-ledger/internal/logger"
	"github.com/wallet-ledger/internal/platform/persistence"
	"github.com/wallet-ledger/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context; migrations run before the pool opens
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	reportRepo := mongo.NewReportRepository(log, mongoDB.Database())
	if err = reportRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to create reconciliation report indexes", "error", err)
		os.Exit(1)
	}

	// Wallet read cache is optional
	var opts []ledger.Option
	var redisClient *goredis.Client
	if cfg.Redis.CacheTTL > 0 {
		redisClient, err = persistence.NewRedisClient(appCtx, log, &cfg.Redis)
		if err != nil {
			log.Error("Failed to initialize Redis", "error", err)
			os.Exit(1)
		}
		opts = append(opts, ledger.WithCache(redis.NewWalletCache(log, redisClient, cfg.Redis.CacheTTL)))
	}

	// Initialize ledger engine and reconciliation
	store := postgres.NewStore(log, postgresDB.Pool(), cfg.Ledger.DBLockTimeout)
	engine := ledger.NewEngine(store, &cfg.Ledger, log, opts...)

	reconService, err := reconciliation.NewService(store, engine, reportRepo, &cfg.Reconciliation, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize reconciliation service", "error", err)
		os.Exit(1)
	}

	// Initialize REST server; the readiness probe pings every store
	dependencies := []handler.Dependency{
		{Name: "postgres", Pinger: postgresDB},
		{Name: "mongodb", Pinger: mongoDB},
	}
	if redisClient != nil {
		dependencies = append(dependencies, handler.Dependency{
			Name:   "redis",
			Pinger: handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		})
	}
	server := ledger_api.NewServer(log, cfg, engine, engine, reconService, dependencies...)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	reconService.Shutdown()

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
