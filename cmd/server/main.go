package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "moneylink-backend/internal/api/http"
	"moneylink-backend/internal/config"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/rail"
	"moneylink-backend/internal/repository/postgres"
	"moneylink-backend/internal/security"
	"moneylink-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting MoneyLink backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Rail configuration", "base_url", cfg.Rail.BaseURL, "max_retries", cfg.Rail.MaxRetries)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)

	// Initialize external collaborators
	railClient := rail.New(rail.Config{
		BaseURL:      cfg.Rail.BaseURL,
		ClientID:     cfg.Rail.ClientID,
		ClientSecret: cfg.Rail.ClientSecret,
		Timeout:      time.Duration(cfg.Rail.TimeoutSeconds) * time.Second,
		MaxRetries:   cfg.Rail.MaxRetries,
	})
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	var pusher service.PushSender
	if cfg.Push.Enabled {
		pusher, err = service.NewFCMPusher(context.Background(), cfg.Push.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize push delivery", "error", err)
			log.Fatalf("Failed to initialize push delivery: %v", err)
		}
		logger.Info("Push delivery enabled")
	}

	// Initialize Services
	effects := service.NewEffects()
	noteSvc := service.NewNotificationService(store.NotificationRepository, store.PreferenceRepository, pusher)
	limits := service.NewLimitValidator(store.TransactionRepository, service.Limits{
		PerTransaction: cfg.Limits.PerTransaction,
		Daily:          cfg.Limits.Daily,
		Weekly:         cfg.Limits.Weekly,
		Location:       cfg.Limits.Location(),
	})
	transferSvc := service.NewTransferService(
		store,
		store.TransactionRepository,
		store.BankRepository,
		store.UserRepository,
		railClient,
		limits,
		noteSvc,
		emailSvc,
		effects,
	)
	reconcileSvc := service.NewReconciliationService(
		store.TransactionRepository,
		store.BankRepository,
		store.UserRepository,
		noteSvc,
		emailSvc,
	)
	bankHealthSvc := service.NewBankHealthService(
		store.BankRepository,
		store.UserRepository,
		noteSvc,
		emailSvc,
	)
	webhookSvc := service.NewWebhookService(
		store.WebhookEventRepository,
		reconcileSvc,
		bankHealthSvc,
		cfg.Rail.WebhookSecret,
	)

	// Set up HTTP server
	router := httpapi.NewRouter(httpapi.RouterDeps{
		Transfers:     transferSvc,
		Webhooks:      webhookSvc,
		Notifications: noteSvc,
		TokenManager:  tokenManager,
		DB:            db,
	})
	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown: stop accepting requests, then drain pending side effects
	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := effects.Wait(ctx); err != nil {
		logger.Warn("Pending notifications abandoned at shutdown", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
