// Package config provides configuration structures and validation for the application.
// It handles environment-based configuration for all major components including
// server settings, database connections, the payment event stream, external
// provider clients, and the background reconciliation jobs.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config holds the complete application configuration with settings for all components.
// Each field represents a major subsystem's configuration (e.g., HTTP server, databases,
// payment provider, POS ledger) and is validated during application startup.
type Config struct {
	Application  ApplicationConfig
	Logging      LoggingConfig
	Server       ServerConfig
	Kafka        KafkaConfig
	Postgres     PostgresConfig
	MongoDB      MongoDBConfig
	Doronpay     DoronpayConfig
	Loyverse     LoyverseConfig
	SMS          SMSConfig
	PollWorker   PollWorkerConfig
	ReceiptSweep ReceiptSweepConfig
	CatalogSync  CatalogSyncConfig
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
	Port            int           // Port to listen on
	ShutdownTimeout time.Duration // Grace period for server shutdown
	ReadTimeout     time.Duration // Maximum duration for reading entire request
	WriteTimeout    time.Duration // Maximum duration for writing response
	IdleTimeout     time.Duration // Maximum duration to wait for next request
}

// KafkaConfig contains Kafka configuration for the payment status event stream
type KafkaConfig struct {
	Brokers           string
	PaymentTopic      string
	NumPartitions     int // Number of partitions for topics
	ReplicationFactor int // Replication factor for topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Topic for Dead Letter Queue
}

// PostgresConfig contains PostgreSQL configuration
type PostgresConfig struct {
	URL             string        // Database connection string
	MaxConns        int32         // Maximum number of open connections
	MinConns        int32         // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum lifetime of a connection
	ConnMaxIdleTime time.Duration // Maximum idle time of a connection
	MigrationsPath  string        // Path to migration files
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

// DoronpayConfig contains the mobile-money payment provider configuration
type DoronpayConfig struct {
	BaseURL     string
	MerchantID  string
	APIKey      string
	CallbackURL string        // Public URL the provider posts payment callbacks to
	Timeout     time.Duration // Bound on every outbound provider call
}

// LoyverseConfig contains the POS ledger configuration
type LoyverseConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// SMSConfig contains the notification service configuration
type SMSConfig struct {
	URL      string
	Service  string
	SenderID string
	Timeout  time.Duration
}

// PollWorkerConfig contains the transaction status poll worker configuration
type PollWorkerConfig struct {
	Interval    time.Duration // How often pending transactions are scanned
	MaxAttempts int           // Per-job retry bound before the job is dropped
	RetryDelay  time.Duration // Initial backoff between job retries
}

// ReceiptSweepConfig contains the POS receipt retry sweep configuration
type ReceiptSweepConfig struct {
	Interval   time.Duration
	BatchSize  int           // Orders repaired per run
	OrderDelay time.Duration // Pause between orders to avoid bursting the POS API
}

// CatalogSyncConfig contains the POS catalog pull configuration
type CatalogSyncConfig struct {
	Interval time.Duration
}

// validate performs comprehensive validation of all configuration values,
// ensuring they meet minimum requirements and logical constraints
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
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.PaymentTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_PAYMENT_TOPIC is required")
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
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
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
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Validate payment provider config
	if c.Doronpay.BaseURL == "" {
		validationErrors = append(validationErrors, "DORONPAY_BASE_URL is required")
	}
	if c.Doronpay.MerchantID == "" {
		validationErrors = append(validationErrors, "DORONPAY_MERCHANT_ID is required")
	}
	if c.Doronpay.APIKey == "" {
		validationErrors = append(validationErrors, "DORONPAY_API_KEY is required")
	}
	if c.Doronpay.CallbackURL == "" {
		validationErrors = append(validationErrors, "DORONPAY_CALLBACK_URL is required")
	}
	if c.Doronpay.Timeout <= 0 {
		validationErrors = append(validationErrors, "DORONPAY_TIMEOUT must be greater than 0")
	}

	// Validate POS ledger config
	if c.Loyverse.BaseURL == "" {
		validationErrors = append(validationErrors, "LOYVERSE_BASE_URL is required")
	}
	if c.Loyverse.APIKey == "" {
		validationErrors = append(validationErrors, "LOYVERSE_API_KEY is required")
	}
	if c.Loyverse.Timeout <= 0 {
		validationErrors = append(validationErrors, "LOYVERSE_TIMEOUT must be greater than 0")
	}

	// Validate SMS config
	if c.SMS.URL == "" {
		validationErrors = append(validationErrors, "SMS_URL is required")
	}
	if c.SMS.SenderID == "" {
		validationErrors = append(validationErrors, "SMS_SENDER_ID is required")
	}
	if c.SMS.Timeout <= 0 {
		validationErrors = append(validationErrors, "SMS_TIMEOUT must be greater than 0")
	}

	// Validate poll worker config
	if c.PollWorker.Interval <= 0 {
		validationErrors = append(validationErrors, "POLL_WORKER_INTERVAL must be greater than 0")
	}
	if c.PollWorker.MaxAttempts <= 0 {
		validationErrors = append(validationErrors, "POLL_WORKER_MAX_ATTEMPTS must be greater than 0")
	}
	if c.PollWorker.RetryDelay <= 0 {
		validationErrors = append(validationErrors, "POLL_WORKER_RETRY_DELAY must be greater than 0")
	}

	// Validate receipt sweep config
	if c.ReceiptSweep.Interval <= 0 {
		validationErrors = append(validationErrors, "RECEIPT_SWEEP_INTERVAL must be greater than 0")
	}
	if c.ReceiptSweep.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECEIPT_SWEEP_BATCH_SIZE must be greater than 0")
	}

	// Validate catalog sync config
	if c.CatalogSync.Interval <= 0 {
		validationErrors = append(validationErrors, "CATALOG_SYNC_INTERVAL must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
