package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobaapp-backend/internal/api_gateway"
	"github.com/bobaapp-backend/internal/api_gateway/service"
	"github.com/bobaapp-backend/internal/clients/doronpay"
	"github.com/bobaapp-backend/internal/clients/loyverse"
	"github.com/bobaapp-backend/internal/clients/sms"
	"github.com/bobaapp-backend/internal/config"
	"github.com/bobaapp-backend/internal/data/mongo"
	"github.com/bobaapp-backend/internal/data/postgres"
	"github.com/bobaapp-backend/internal/logger"
	"github.com/bobaapp-backend/internal/platform/messaging/producers"
	"github.com/bobaapp-backend/internal/platform/persistence"
	"github.com/bobaapp-backend/internal/reconciliation"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

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

	// Initialize Kafka producer for payment callbacks (publishes to the payment status topic)
	kafkaProducer, err := producers.NewPaymentStatusProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize payment status Kafka producer", "error", err)
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

	// Initialize the reconciliation engine (order placement path)
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

	// Initialize services
	orderService := service.NewOrderService(log, engine, orderRepo, transactionRepo)
	callbackService := service.NewCallbackService(log, transactionRepo, kafkaProducer)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, orderService, callbackService)
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

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
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
