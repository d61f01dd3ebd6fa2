package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/cuongbtq/booking-be/internal/api/handler"
	"github.com/cuongbtq/booking-be/internal/api/router"
	"github.com/cuongbtq/booking-be/internal/booking"
	"github.com/cuongbtq/booking-be/internal/booking/domain"
	"github.com/cuongbtq/booking-be/internal/booking/storage"
	"github.com/cuongbtq/booking-be/internal/config"
	"github.com/cuongbtq/booking-be/internal/livefeed"
	"github.com/cuongbtq/booking-be/internal/notification"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(cfg.Logging.LoggerConfig(cfg.App.Name))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("database_driver", cfg.Database.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := initStore(ctx, &cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer closeStore()

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	gateway := notification.NewGateway(rabbitClient, store, notification.Options{
		Location:       loc,
		NightStartHour: cfg.Booking.NightStartHour,
		NightEndHour:   cfg.Booking.NightEndHour,
		MorningHour:    cfg.Booking.MorningHour,
	}, appLogger.Logger)

	deps := &handler.Dependencies{
		Logger:  appLogger.Logger,
		Service: cfg.App.Name,
		Users:   store,
		Store:   store,
	}

	var feed booking.Broadcaster
	if cfg.LiveFeed.Enabled {
		hub := livefeed.NewHub(livefeed.Config{
			WriteTimeout: cfg.LiveFeed.WriteTimeout,
			BufferSize:   cfg.LiveFeed.BufferSize,
		}, appLogger.Logger)
		go hub.Run(ctx)

		feed = hub
		deps.LiveFeed = hub.ServeWS
	}

	deps.Bookings = booking.NewService(store, gateway, feed, booking.Options{
		AdminEmail: cfg.Booking.AdminEmail,
		Location:   loc,
	}, appLogger.Logger)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.SetupRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Bool("livefeed", cfg.LiveFeed.Enabled),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initStore opens the configured booking store. The returned func releases it.
func initStore(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (domain.Store, func(), error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("Using in-memory booking store, data is lost on restart")
		return storage.NewMemory(), func() {}, nil
	}

	dbClient, err := postgresql.NewClient(ctx, cfg.PostgresConfig(), logger)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewPostgres(dbClient.DB(), logger)
	if cfg.Migrate {
		if err := store.Migrate(ctx); err != nil {
			dbClient.Close()
			return nil, nil, err
		}
	}

	logger.Info("Database connection established")
	return store, func() { dbClient.Close() }, nil
}
