package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Rail      RailConfig      `yaml:"rail"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Push      PushConfig      `yaml:"push"`
	Limits    LimitsConfig    `yaml:"limits"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// JWTConfig contains the secret used to validate bearer tokens issued by the auth service
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// RailConfig contains payment rail API and webhook settings
type RailConfig struct {
	BaseURL        string `yaml:"base_url"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     uint64 `yaml:"max_retries"`
}

// SendGridConfig contains email delivery settings
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// PushConfig contains Firebase Cloud Messaging settings
type PushConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
}

// LimitsConfig contains P2P transfer caps in settlement currency units
type LimitsConfig struct {
	PerTransaction decimal.Decimal `yaml:"per_transaction"`
	Daily          decimal.Decimal `yaml:"daily"`
	Weekly         decimal.Decimal `yaml:"weekly"`
	Timezone       string          `yaml:"timezone"`
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	StalePendingReport     string `yaml:"stale_pending_report"`
	StalePendingAfterHours int    `yaml:"stale_pending_after_hours"`
	StalePendingBatchSize  int    `yaml:"stale_pending_batch_size"`
	OperatorEmail          string `yaml:"operator_email"` // report recipient; empty logs only
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Rail
	if val := os.Getenv("RAIL_BASE_URL"); val != "" {
		c.Rail.BaseURL = val
	}
	if val := os.Getenv("RAIL_CLIENT_ID"); val != "" {
		c.Rail.ClientID = val
	}
	if val := os.Getenv("RAIL_CLIENT_SECRET"); val != "" {
		c.Rail.ClientSecret = val
	}
	if val := os.Getenv("RAIL_WEBHOOK_SECRET"); val != "" {
		c.Rail.WebhookSecret = val
	}

	// SendGrid
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}

	// Push
	if val := os.Getenv("FIREBASE_CREDENTIALS_FILE"); val != "" {
		c.Push.CredentialsFile = val
	}
	if val := os.Getenv("PUSH_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Push.Enabled = enabled
		}
	}

	// Scheduler
	if val := os.Getenv("OPERATOR_EMAIL"); val != "" {
		c.Scheduler.OperatorEmail = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills in defaults.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierror.Append(errs, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}

	if c.Database.Host == "" {
		errs = multierror.Append(errs, fmt.Errorf("database host is required"))
	}
	if c.Database.User == "" {
		errs = multierror.Append(errs, fmt.Errorf("database user is required"))
	}
	if c.Database.Database == "" {
		errs = multierror.Append(errs, fmt.Errorf("database name is required"))
	}

	if c.JWT.Secret == "" {
		errs = multierror.Append(errs, fmt.Errorf("JWT secret is required"))
	} else if len(c.JWT.Secret) < 32 {
		errs = multierror.Append(errs, fmt.Errorf("JWT secret must be at least 32 characters"))
	}

	if c.Rail.BaseURL == "" {
		errs = multierror.Append(errs, fmt.Errorf("rail base URL is required"))
	}
	if c.Rail.WebhookSecret == "" {
		errs = multierror.Append(errs, fmt.Errorf("rail webhook secret is required"))
	}

	if c.Push.Enabled && c.Push.CredentialsFile == "" {
		errs = multierror.Append(errs, fmt.Errorf("push credentials file is required when push is enabled"))
	}

	if c.Limits.Timezone == "" {
		c.Limits.Timezone = "America/New_York"
	}
	if _, err := time.LoadLocation(c.Limits.Timezone); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid limits timezone %q: %w", c.Limits.Timezone, err))
	}

	// Defaults
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Rail.TimeoutSeconds == 0 {
		c.Rail.TimeoutSeconds = 30
	}
	if c.Rail.MaxRetries == 0 {
		c.Rail.MaxRetries = 3
	}
	if c.Limits.PerTransaction.IsZero() {
		c.Limits.PerTransaction = decimal.NewFromInt(2000)
	}
	if c.Limits.Daily.IsZero() {
		c.Limits.Daily = decimal.NewFromInt(5000)
	}
	if c.Limits.Weekly.IsZero() {
		c.Limits.Weekly = decimal.NewFromInt(10000)
	}
	if c.Scheduler.StalePendingReport == "" {
		c.Scheduler.StalePendingReport = "0 0 * * * *" // Hourly
	}
	if c.Scheduler.StalePendingAfterHours == 0 {
		c.Scheduler.StalePendingAfterHours = 120 // ACH settles in 1-4 business days
	}
	if c.Scheduler.StalePendingBatchSize == 0 {
		c.Scheduler.StalePendingBatchSize = 100
	}

	return errs.ErrorOrNil()
}

// Location returns the time zone used for daily limit windows
func (l LimitsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
