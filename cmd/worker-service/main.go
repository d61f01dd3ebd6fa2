package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cuongbtq/booking-be/internal/config"
	"github.com/cuongbtq/booking-be/internal/notification"
	"github.com/cuongbtq/booking-be/internal/worker"
	"github.com/cuongbtq/booking-be/internal/worker/storage"
	"github.com/cuongbtq/booking-be/shared/logger"
	"github.com/cuongbtq/booking-be/shared/postgresql"
	"github.com/cuongbtq/booking-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorker(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.LoggerConfig(cfg.App.Name))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveryLog, closeLog, err := initDeliveryLog(ctx, &cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize delivery log: %w", err)
	}
	defer closeLog()

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:          appLogger.Logger,
		Broker:          rabbitClient,
		Log:             deliveryLog,
		Transport:       notification.NewLogTransport(appLogger.Logger),
		Concurrency:     cfg.Worker.Concurrency,
		PrefetchCount:   cfg.RabbitMQ.Consumer.PrefetchCount,
		MaxRetries:      cfg.Worker.MaxRetries,
		DeliveryTimeout: cfg.Worker.DeliveryTimeout,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Worker error",
			slog.Any("error", err),
		)
		return err
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initDeliveryLog opens the store that tracks notification deliveries
func initDeliveryLog(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (worker.DeliveryLog, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("Using in-memory delivery log, duplicates are not detected across restarts")
		return storage.NewMemory(), func() {}, nil
	}

	dbClient, err := postgresql.NewClient(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, nil, err
	}

	deliveryLog := storage.NewStorage(dbClient.DB(), logger)
	if cfg.Migrate {
		if err := deliveryLog.Migrate(ctx); err != nil {
			dbClient.Close()
			return nil, nil, err
		}
	}

	logger.Info("Database connection established")
	return deliveryLog, func() { dbClient.Close() }, nil
}
