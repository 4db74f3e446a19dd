package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"bol-invoice-api/internal/adapters/marketplace"
	"bol-invoice-api/internal/adapters/storage"
	"bol-invoice-api/internal/services"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Server      ServerConfig
	Database    DatabaseConfig
	Storage     StorageConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Marketplace MarketplaceConfig
	Invoicing   InvoicingConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig holds PDF archive configuration
type StorageConfig struct {
	Type      string // "local", "memory" or "none"
	LocalPath string
}

// JWTConfig holds JWT configuration. An empty secret disables authentication.
type JWTConfig struct {
	Secret      string
	ExpiryHours int
	Issuer      string
}

// RateLimitConfig holds inbound request throttling
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// MarketplaceConfig holds retailer API configuration
type MarketplaceConfig struct {
	Enabled           bool
	BaseURL           string
	TokenURL          string
	Timeout           time.Duration
	UploadTimeout     time.Duration
	RequestsPerSecond float64
	Burst             int
	PollInterval      time.Duration
	MaxPollAttempts   int
}

// InvoicingConfig holds invoice generation settings
type InvoicingConfig struct {
	NumberRetries int
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		Server: ServerConfig{
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Path:            v.GetString("DB_PATH"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			BusyTimeout:     v.GetDuration("DB_BUSY_TIMEOUT"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
			SeedVatRules:    v.GetBool("DB_SEED_VAT_RULES"),
		},
		Storage: StorageConfig{
			Type:      v.GetString("STORAGE_TYPE"),
			LocalPath: v.GetString("STORAGE_LOCAL_PATH"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
			Issuer:      v.GetString("JWT_ISSUER"),
		},
		RateLimit: RateLimitConfig{
			Enabled:           v.GetBool("RATE_LIMIT_ENABLED"),
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Marketplace: MarketplaceConfig{
			Enabled:           v.GetBool("MARKETPLACE_ENABLED"),
			BaseURL:           v.GetString("MARKETPLACE_BASE_URL"),
			TokenURL:          v.GetString("MARKETPLACE_TOKEN_URL"),
			Timeout:           v.GetDuration("MARKETPLACE_TIMEOUT"),
			UploadTimeout:     v.GetDuration("MARKETPLACE_UPLOAD_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("MARKETPLACE_RPS"),
			Burst:             v.GetInt("MARKETPLACE_BURST"),
			PollInterval:      v.GetDuration("MARKETPLACE_POLL_INTERVAL"),
			MaxPollAttempts:   v.GetInt("MARKETPLACE_MAX_POLL_ATTEMPTS"),
		},
		Invoicing: InvoicingConfig{
			NumberRetries: v.GetInt("INVOICE_NUMBER_RETRIES"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := marketplace.DefaultConfig()

	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "60s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("DB_PATH", "./data/invoices.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 4)
	v.SetDefault("DB_MAX_IDLE_CONNS", 2)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_SEED_VAT_RULES", true)
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./data/documents")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("JWT_ISSUER", "bol-invoice-api")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("MARKETPLACE_ENABLED", true)
	v.SetDefault("MARKETPLACE_BASE_URL", defaults.BaseURL)
	v.SetDefault("MARKETPLACE_TOKEN_URL", defaults.TokenURL)
	v.SetDefault("MARKETPLACE_TIMEOUT", defaults.Timeout.String())
	v.SetDefault("MARKETPLACE_UPLOAD_TIMEOUT", "2m")
	v.SetDefault("MARKETPLACE_RPS", defaults.RequestsPerSecond)
	v.SetDefault("MARKETPLACE_BURST", defaults.Burst)
	v.SetDefault("MARKETPLACE_POLL_INTERVAL", defaults.PollInterval.String())
	v.SetDefault("MARKETPLACE_MAX_POLL_ATTEMPTS", defaults.MaxPollAttempts)
	v.SetDefault("INVOICE_NUMBER_RETRIES", services.DefaultNumberRetries)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
}

// Validate checks the configuration for values the application cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Storage.Type) {
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage local path cannot be empty")
		}
	case "memory", "none":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.JWT.Secret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst < 1) {
		return fmt.Errorf("rate limit requires a positive rate and burst")
	}
	if c.Marketplace.Enabled && (c.Marketplace.BaseURL == "" || c.Marketplace.TokenURL == "") {
		return fmt.Errorf("marketplace base and token URLs are required")
	}
	if c.Invoicing.NumberRetries < 1 {
		return fmt.Errorf("invoice number retries must be at least 1")
	}
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// IsProduction reports whether the application runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// IsDevelopment reports whether the application runs in development
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// AuthEnabled reports whether requests must carry a JWT
func (c *Config) AuthEnabled() bool {
	return c.JWT.Secret != ""
}

// MarketplaceClientConfig converts the settings to a retailer API client configuration
func (c *MarketplaceConfig) MarketplaceClientConfig() marketplace.Config {
	config := marketplace.DefaultConfig()
	config.BaseURL = c.BaseURL
	config.TokenURL = c.TokenURL
	config.Timeout = c.Timeout
	config.RequestsPerSecond = c.RequestsPerSecond
	config.Burst = c.Burst
	config.PollInterval = c.PollInterval
	config.MaxPollAttempts = c.MaxPollAttempts
	return config
}

// StorageAdapterConfig converts the settings to a storage configuration; nil means no archive
func (c *StorageConfig) StorageAdapterConfig() *storage.StorageConfig {
	if strings.EqualFold(c.Type, "none") {
		return nil
	}
	return &storage.StorageConfig{Type: strings.ToLower(c.Type), BasePath: c.LocalPath}
}

// NewLogger builds the application logger: text in development, JSON elsewhere unless overridden
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	format := strings.ToLower(c.Logging.Format)
	if format == "" {
		format = "json"
		if c.IsDevelopment() {
			format = "text"
		}
	}

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvAsBool gets an environment variable as boolean with a fallback value
func GetEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
