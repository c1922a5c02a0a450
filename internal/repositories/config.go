package repositories

import (
	"errors"
	"fmt"
	"time"
)

// Supported database/sql driver names
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// Config represents repository configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Connection pool configuration
	Pool PoolConfig `json:"pool" yaml:"pool"`

	// Query configuration
	Query QueryConfig `json:"query" yaml:"query"`

	// Migration configuration
	Migration MigrationConfig `json:"migration" yaml:"migration"`
}

// DatabaseConfig represents database-specific configuration
type DatabaseConfig struct {
	// Driver is the database/sql driver name: sqlite3 or sqlite
	Driver string `json:"driver" yaml:"driver"`

	// Path is the database file path
	Path string `json:"path" yaml:"path"`

	// Foreign key constraints
	ForeignKeys bool `json:"foreign_keys" yaml:"foreign_keys"`

	// Synchronous mode for SQLite
	Synchronous string `json:"synchronous" yaml:"synchronous"`

	// Journal mode for SQLite
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`

	// Busy timeout for SQLite (in milliseconds)
	BusyTimeout int `json:"busy_timeout" yaml:"busy_timeout"`
}

// PoolConfig represents connection pool configuration
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" yaml:"max_idle_conns"`

	// ConnMaxLifetime is the maximum lifetime of a connection
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`

	// ConnMaxIdleTime is the maximum idle time of a connection
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" yaml:"conn_max_idle_time"`
}

// QueryConfig represents query-specific configuration
type QueryConfig struct {
	// DefaultLimit is the default limit for list queries
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`

	// MaxLimit is the maximum allowed limit for list queries
	MaxLimit int `json:"max_limit" yaml:"max_limit"`

	// SlowQueryThreshold is the threshold for logging slow queries
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" yaml:"slow_query_threshold"`
}

// MigrationConfig represents migration configuration
type MigrationConfig struct {
	// Enabled runs pending migrations on startup
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Table is the migration table name
	Table string `json:"table" yaml:"table"`
}

// DefaultConfig returns a default repository configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:      DriverCGO,
			Path:        "data/ledger.db",
			ForeignKeys: true,
			Synchronous: "NORMAL",
			JournalMode: "WAL",
			BusyTimeout: 5000,
		},
		Pool: PoolConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: time.Minute * 15,
		},
		Query: QueryConfig{
			DefaultLimit:       100,
			MaxLimit:           1000,
			SlowQueryThreshold: time.Second,
		},
		Migration: MigrationConfig{
			Enabled: true,
			Table:   "schema_migrations",
		},
	}
}

// Validate validates the repository configuration
func (c *Config) Validate() error {
	if !IsSupportedDriver(c.Database.Driver) {
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required for SQLite")
	}

	if c.Database.BusyTimeout < 0 {
		return errors.New("busy timeout cannot be negative")
	}

	if c.Pool.MaxOpenConns <= 0 {
		return errors.New("max open connections must be greater than 0")
	}

	if c.Pool.MaxIdleConns < 0 {
		return errors.New("max idle connections cannot be negative")
	}

	if c.Pool.MaxIdleConns > c.Pool.MaxOpenConns {
		return errors.New("max idle connections cannot exceed max open connections")
	}

	if c.Query.DefaultLimit <= 0 {
		return errors.New("default limit must be greater than 0")
	}

	if c.Query.DefaultLimit > c.Query.MaxLimit {
		return errors.New("default limit cannot exceed max limit")
	}

	if c.Migration.Enabled && c.Migration.Table == "" {
		return errors.New("migration table name is required")
	}

	return nil
}

// IsSupportedDriver reports whether driver names a registered SQLite driver
func IsSupportedDriver(driver string) bool {
	return driver == DriverCGO || driver == DriverPureGo
}

// IsPureGo returns true if the modernc driver is selected
func (c *Config) IsPureGo() bool {
	return c.Database.Driver == DriverPureGo
}
