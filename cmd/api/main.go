package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartspend/internal/archive"
	"smartspend/internal/config"
	"smartspend/internal/database"
	"smartspend/internal/events"
	"smartspend/internal/ingest"
	"smartspend/internal/logger"
	"smartspend/internal/metrics"
	"smartspend/internal/middleware"
	"smartspend/internal/repository"
	"smartspend/internal/server"
	"smartspend/internal/services"
	"smartspend/internal/validator"
)

// @title           SmartSpend API
// @version         1.0
// @description     SmartSpend tracks personal income and expenses, imports bank CSV exports and summarizes balances.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	archiver, closeArchive, err := archive.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create upload archive: %w", err)
	}
	defer func() {
		if err := closeArchive(); err != nil {
			log.Warnw("failed to close upload archive", "error", err)
		}
	}()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to message broker: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warnw("failed to close event publisher", "error", err)
		}
	}()

	validator.Register()
	m := metrics.New()

	// Initialize services
	db := dbManager.DB()
	store := repository.NewLedgerStore(db)
	userService := services.NewUserService(db)
	categoryService := services.NewCategoryService(db)
	transactionService := services.NewTransactionService(db, categoryService)
	dashboardService := services.NewDashboardService(store, m)
	importService := services.NewImportService(services.ImportDeps{
		Store:     store,
		Ingestor:  ingest.NewIngestor(cfg.MaxUploadBytes),
		Archiver:  archiver,
		Publisher: publisher,
		Metrics:   m,
		Workers:   cfg.ImportWorkers,
	})
	auditService := services.NewAuditService(db)

	router := server.NewRouter(server.Deps{
		DB:             dbManager,
		Users:          userService,
		Categories:     categoryService,
		Transactions:   transactionService,
		Dashboard:      dashboardService,
		Imports:        importService,
		Audit:          auditService,
		Tokens:         middleware.NewTokenManager(cfg.JWTSecret, cfg.JWTExpirationDur),
		UploadLimiter:  middleware.NewRateLimiter(cfg.UploadRatePerMinute),
		Metrics:        m,
		MetricsAPIKey:  cfg.MetricsAPIKey,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting SmartSpend backend server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config) (events.Publisher, error) {
	if cfg.AMQPURL == "" {
		logger.Get().Info("AMQP_URL not set, import events are disabled")
		return events.Noop{}, nil
	}
	return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
}
