// Package config provides configuration structures and validation for the wallet ledger.
// Values are layered from defaults, an optional env file and the process environment,
// and every binary validates the final result before wiring any component.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration.
type Config struct {
	Application    ApplicationConfig
	Logging        LoggingConfig
	Server         ServerConfig
	Kafka          KafkaConfig
	Postgres       PostgresConfig
	MongoDB        MongoDBConfig
	Redis          RedisConfig
	Outbox         OutboxConfig
	WorkerPool     WorkerPoolConfig
	Ledger         LedgerConfig
	Reconciliation ReconciliationConfig
}

// ApplicationConfig contains general application configuration
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// KafkaConfig contains Kafka configuration
type KafkaConfig struct {
	Brokers           string
	RewardCreditTopic string // Inbound credit requests from reward-granting services
	WalletEventsTopic string // Outbound wallet events relayed from the outbox
	NumPartitions     int
	ReplicationFactor int
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	DLQTopic          string
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// MongoDBConfig contains MongoDB configuration
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RedisConfig contains the wallet read cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration // Zero disables the cache
}

// OutboxConfig contains outbox pattern configuration
type OutboxConfig struct {
	PollingInterval  time.Duration
	BatchSize        int
	MaxRetryAttempts int
}

// WorkerPoolConfig contains worker pool configuration
type WorkerPoolConfig struct {
	Size int
}

// LedgerConfig contains the ledger engine tuning and wallet defaults
type LedgerConfig struct {
	LockTimeout   time.Duration // Bounded wait for the in-process wallet lock
	DBLockTimeout time.Duration // SET LOCAL lock_timeout for the wallet row lock

	DefaultDailyWithdrawal   decimal.Decimal
	DefaultMonthlyWithdrawal decimal.Decimal
	DefaultMaxBalance        decimal.Decimal
	DefaultMinWithdrawal     decimal.Decimal

	PinMaxAttempts  int
	PinLockDuration time.Duration
}

// ReconciliationConfig contains drift detection settings
type ReconciliationConfig struct {
	Interval          time.Duration
	StalenessWindow   time.Duration // Wallets reconciled more recently are skipped by batch runs
	BatchSize         int
	Tolerance         decimal.Decimal
	MaxVersionRetries int // Snapshot retries when the wallet moves during a check
}

func (c *Config) validate() error {
	var validationErrors []string

	// Validate Server config
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Validate Kafka config
	if c.Kafka.Brokers == "" {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.RewardCreditTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_REWARD_CREDIT_TOPIC is required")
	}
	if c.Kafka.WalletEventsTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_WALLET_EVENTS_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}

	// Validate PostgreSQL config
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate MongoDB config
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}

	// Validate Redis config
	if c.Redis.Addr == "" {
		validationErrors = append(validationErrors, "REDIS_ADDR is required")
	}
	if c.Redis.CacheTTL < 0 {
		validationErrors = append(validationErrors, "REDIS_WALLET_CACHE_TTL must not be negative")
	}

	// Validate Outbox config
	if c.Outbox.PollingInterval <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_POLLING_INTERVAL must be greater than 0")
	}
	if c.Outbox.BatchSize <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_BATCH_SIZE must be greater than 0")
	}
	if c.Outbox.MaxRetryAttempts <= 0 {
		validationErrors = append(validationErrors, "OUTBOX_MAX_RETRY_ATTEMPTS must be greater than 0")
	}

	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	// Validate Ledger config
	if c.Ledger.LockTimeout <= 0 {
		validationErrors = append(validationErrors, "LEDGER_LOCK_TIMEOUT must be greater than 0")
	}
	if c.Ledger.DBLockTimeout < 0 {
		validationErrors = append(validationErrors, "LEDGER_DB_LOCK_TIMEOUT must not be negative")
	}
	if !c.Ledger.DefaultMaxBalance.IsPositive() {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_MAX_BALANCE must be greater than 0")
	}
	if c.Ledger.DefaultDailyWithdrawal.IsNegative() {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_DAILY_WITHDRAWAL must not be negative")
	}
	if c.Ledger.DefaultMonthlyWithdrawal.IsNegative() {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_MONTHLY_WITHDRAWAL must not be negative")
	}
	if c.Ledger.DefaultMinWithdrawal.IsNegative() {
		validationErrors = append(validationErrors, "LEDGER_DEFAULT_MIN_WITHDRAWAL must not be negative")
	}
	if c.Ledger.PinMaxAttempts <= 0 {
		validationErrors = append(validationErrors, "LEDGER_PIN_MAX_ATTEMPTS must be greater than 0")
	}
	if c.Ledger.PinLockDuration <= 0 {
		validationErrors = append(validationErrors, "LEDGER_PIN_LOCK_DURATION must be greater than 0")
	}

	// Validate Reconciliation config
	if c.Reconciliation.Interval <= 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_INTERVAL must be greater than 0")
	}
	if c.Reconciliation.StalenessWindow < 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_STALENESS_WINDOW must not be negative")
	}
	if c.Reconciliation.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_BATCH_SIZE must be greater than 0")
	}
	if c.Reconciliation.Tolerance.IsNegative() {
		validationErrors = append(validationErrors, "RECONCILIATION_TOLERANCE must not be negative")
	}
	if c.Reconciliation.MaxVersionRetries <= 0 {
		validationErrors = append(validationErrors, "RECONCILIATION_MAX_VERSION_RETRIES must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
