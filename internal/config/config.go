package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/filelock"
	"market-ledger/internal/repositories"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Port        string
	Log         LogConfig
	Database    DatabaseConfig
	Lock        LockConfig
	Storage     storage.StorageConfig
	JWT         JWTConfig
	Admin       AdminConfig
	RateLimit   RateLimitConfig
	RabbitMQ    RabbitMQConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver        string
	Path          string
	MaxOpenConns  int
	MaxIdleConns  int
	BusyTimeoutMS int
	AutoMigrate   bool
}

// LockConfig holds advisory file lock configuration
type LockConfig struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// AdminConfig holds the administrator credential. PasswordHash is bcrypt.
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// RateLimitConfig bounds purchase requests per client
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RabbitMQConfig holds event publishing configuration. An empty URL disables events.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// Load loads configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8081")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_DRIVER", repositories.DriverCGO)
	v.SetDefault("DB_PATH", "./data/ledger.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_BUSY_TIMEOUT_MS", 5000)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("LOCK_TIMEOUT", "5s")
	v.SetDefault("LOCK_POLL_INTERVAL", "25ms")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RABBITMQ_EXCHANGE", "ledger.events")
	v.SetDefault("STORAGE_TYPE", "local")
	v.SetDefault("STORAGE_LOCAL_PATH", "./data/archives")
	v.SetDefault("S3_REGION", "us-east-1")

	config := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Driver:        v.GetString("DB_DRIVER"),
			Path:          v.GetString("DB_PATH"),
			MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
			BusyTimeoutMS: v.GetInt("DB_BUSY_TIMEOUT_MS"),
			AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		},
		Lock: LockConfig{
			Timeout:      v.GetDuration("LOCK_TIMEOUT"),
			PollInterval: v.GetDuration("LOCK_POLL_INTERVAL"),
		},
		Storage: storage.StorageConfig{
			Type:      v.GetString("STORAGE_TYPE"),
			BasePath:  v.GetString("STORAGE_LOCAL_PATH"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			PathStyle: v.GetBool("S3_PATH_STYLE"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Admin: AdminConfig{
			Username:     v.GetString("ADMIN_USERNAME"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
		},
	}

	return config, nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	if !repositories.IsSupportedDriver(c.Database.Driver) {
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Lock.Timeout <= 0 {
		return fmt.Errorf("lock timeout must be positive")
	}
	if c.IsProduction() && c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// RepositoryConfig converts the database settings into a repository configuration
func (c *Config) RepositoryConfig() *repositories.Config {
	rc := repositories.DefaultConfig()
	rc.Database.Driver = c.Database.Driver
	rc.Database.Path = c.Database.Path
	rc.Database.BusyTimeout = c.Database.BusyTimeoutMS
	rc.Pool.MaxOpenConns = c.Database.MaxOpenConns
	rc.Pool.MaxIdleConns = c.Database.MaxIdleConns
	rc.Migration.Enabled = c.Database.AutoMigrate
	return rc
}

// LockOptions returns the advisory lock settings
func (c *Config) LockOptions() filelock.Options {
	return filelock.Options{Timeout: c.Lock.Timeout, PollInterval: c.Lock.PollInterval}
}

// NewLogger builds a logger with the configured level and format
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(c.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	if c.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
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

// GetEnvAsInt gets an environment variable as integer with a fallback value
func GetEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
