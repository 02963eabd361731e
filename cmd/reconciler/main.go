package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/clients/sms"
	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/data/mongo"
	"github.com/bobaapp-backend/internal/data/postgres"
	"github.com/bobaapp-backend/internal/logger"
	"github.com/bobaapp-backend/internal/platform/messaging/consumers"
	"github.com/bobaapp-backend/internal/platform/messaging/producers"
	"github.com/bobaapp-backend/internal/platform/persistence"
	"github.com/bobaapp-backend/internal/reconciliation"
	"github.com/bobaapp-backend/internal/reconciliation/catalogsync"
	"github.com/bobaapp-backend/internal/reconciliation/events"
	"github.com/bobaapp-backend/internal/reconciliation/pollworker"
	"github.com/bobaapp-backend/internal/reconciliation/receiptsweep"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
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

	// Initialize repositories
	orderRepo := postgres.NewOrderRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	sequenceRepo := postgres.NewSequenceRepository(log, postgresDB)
	catalogRepo := mongo.NewCatalogRepository(log, mongoDB.Database())
	customerRepo := mongo.NewCustomerRepository(log, mongoDB.Database())
	settingsRepo := mongo.NewSettingsRepository(log, mongoDB.Database())

	// Initialize external clients
	paymentClient := doronpay.NewClient(log, &cfg.Doronpay)
	posClient := loyverse.NewClient(log, &cfg.Loyverse)
	smsClient := sms.NewClient(log, &cfg.SMS)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize the reconciliation engine
	engine := reconciliation.NewEngine(
		log,
		orderRepo,
		transactionRepo,
		sequenceRepo,
		catalogRepo,
		customerRepo,
		settingsRepo,
		postgresDB,
		paymentClient,
		posClient,
		smsClient,
	)

	// Initialize payment event handler
	paymentEventHandler := events.NewPaymentEventHandler(
		log,
		engine,
		dlqProducer,
	)

	// Initialize background jobs
	pollWorker, err := pollworker.NewWorker(log, &cfg.PollWorker, transactionRepo, paymentClient, engine)
	if err != nil {
		log.Error("Failed to initialize status poll worker", "error", err)
		os.Exit(1)
	}
	receiptSweep := receiptsweep.NewSweep(log, &cfg.ReceiptSweep, orderRepo, transactionRepo, engine)
	catalogJob := catalogsync.NewJob(log, &cfg.CatalogSync, posClient, catalogRepo, customerRepo, settingsRepo)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.PaymentTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.PaymentTopic, cfg.Kafka.ConsumerGroup, paymentEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start the status poll worker in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting status poll worker",
			"interval", cfg.PollWorker.Interval.String(),
			"max_attempts", cfg.PollWorker.MaxAttempts,
		)
		pollWorker.Start(appCtx)
	}()

	// Start the receipt retry sweep in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting receipt retry sweep",
			"interval", cfg.ReceiptSweep.Interval.String(),
			"batch_size", cfg.ReceiptSweep.BatchSize,
		)
		receiptSweep.Start(appCtx)
	}()

	// Start the catalog sync job in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting catalog sync job",
			"interval", cfg.CatalogSync.Interval.String(),
		)
		catalogJob.Start(appCtx)
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

	// Release the poll worker's goroutine pool
	pollWorker.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Reconciler shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Reconciler shutdown completed with errors")
	} else {
		log.Info("Reconciler shutdown completed successfully")
	}
}
