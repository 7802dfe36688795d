package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"moneylink-backend/internal/config"
	"moneylink-backend/internal/jobs"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository/postgres"
	"moneylink-backend/internal/scheduler"
	"moneylink-backend/internal/service"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cronjob",
	Short: "Cronjob runs MoneyLink's scheduled operational jobs",
}

var (
	runCmd = &cobra.Command{
		Use:     "run",
		Short:   "Run the cron scheduler until interrupted",
		Example: "cronjob run --config config/config.dev.yaml",
		RunE:    runScheduler,
	}
	runOnceCmd = &cobra.Command{
		Use:     "run-once <job>",
		Short:   "Run a single job once and exit",
		Long:    "Run a single job once and exit, available jobs: " + jobs.JobStalePendingReport,
		Example: "cronjob run-once " + jobs.JobStalePendingReport,
		Args:    cobra.ExactArgs(1),
		RunE:    runJobOnce,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.dev.yaml", "Path to configuration file")
	rootCmd.AddCommand(runCmd, runOnceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the job runner. The returned close func
// releases the database.
func setup() (*jobs.JobRunner, func(), error) {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting MoneyLink Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	emailService := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)

	jobRunner := jobs.NewJobRunner(store.TransactionRepository, emailService, cfg)
	return jobRunner, func() { db.Close() }, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	jobRunner, closeDB, err := setup()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeDB()

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
	return nil
}

func runJobOnce(cmd *cobra.Command, args []string) error {
	jobRunner, closeDB, err := setup()
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer closeDB()

	jobName := args[0]
	logger.Info("Running job once", "job", jobName)
	if err := jobRunner.RunJob(jobName); err != nil {
		logger.Error("Job execution failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job execution completed", "job", jobName)
	return nil
}
