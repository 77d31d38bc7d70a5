package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/wallet-ledger/internal/config"
	"github.com/wallet-ledger/internal/data/mongo"
	"github.com/wallet-ledger/internal/data/postgres"
	"github.com/wallet-ledger/internal/data/redis"
	"github.com/wallet-ledger/internal/ledger"
	"github.com/wallet-ledger/internal/ledger_worker/consumer"
	"github.com/wallet-ledger/internal/ledger_worker/outbox_poller"
	"github.com/wallet-ledger/internal/ledger_worker/service"
	"github.com/wallet-ledger/internal/logger"
	"github.com/wallet-ledger/internal/platform/messaging/consumers"
	"github.com/wallet-ledger/internal/platform/messaging/producers"
	"github.com/wallet-ledger/internal/platform/persistence"
	"github.com/wallet-ledger/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
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

	// Credits applied here must evict what the API has cached
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

	store := postgres.NewStore(log, postgresDB.Pool(), cfg.Ledger.DBLockTimeout)
	engine := ledger.NewEngine(store, &cfg.Ledger, log, opts...)

	// Initialize Kafka producers
	eventProducer, err := producers.NewWalletEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize wallet event producer", "error", err)
		os.Exit(1)
	}

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; the handler must see a nil interface
	var deadLetters producers.DeadLetterPublisher
	if dlqProducer != nil {
		deadLetters = dlqProducer
	}

	// Initialize credit service behind the worker pool
	creditService, err := service.NewWorkerPoolCreditService(
		service.NewCreditService(engine, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	rewardCreditHandler := consumer.NewRewardCreditHandler(log, creditService, deadLetters)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, cfg.Kafka.RewardCreditTopic)

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewKafkaEventPublisher(store.Repositories().Outbox, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, store.Repositories().Outbox, eventPublisher, log)

	// Initialize reconciliation
	reconService, err := reconciliation.NewService(store, engine, reportRepo, &cfg.Reconciliation, cfg.WorkerPool.Size, log)
	if err != nil {
		log.Error("Failed to initialize reconciliation service", "error", err)
		os.Exit(1)
	}
	scheduler := reconciliation.NewScheduler(log, reconService, cfg.Reconciliation.Interval)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Kafka consumer fetches in the background until the context ends
	log.Info("Starting Kafka consumer",
		"topic", cfg.Kafka.RewardCreditTopic,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err = kafkaConsumer.Subscribe(appCtx, rewardCreditHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start reconciliation scheduler in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for the consumer loop and all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		<-kafkaConsumer.Done()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	log.Info("Shutting down worker pool", "running_workers", creditService.Running())
	creditService.Shutdown()
	reconService.Shutdown()

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing wallet event producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Ledger Worker shutdown completed with errors")
	} else {
		log.Info("Ledger Worker shutdown completed successfully")
	}
}
