package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"market-ledger/internal/repositories"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// HealthStatus reports the result of a database health check
type HealthStatus struct {
	Healthy      bool              `json:"healthy"`
	Message      string            `json:"message"`
	ResponseTime time.Duration     `json:"response_time"`
	CheckedAt    time.Time         `json:"checked_at"`
	Details      map[string]string `json:"details,omitempty"`
}

// ConnectionFactory creates and manages database connections
type ConnectionFactory struct {
	logger *logrus.Logger
}

// NewConnectionFactory creates a new connection factory
func NewConnectionFactory(logger *logrus.Logger) *ConnectionFactory {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConnectionFactory{
		logger: logger,
	}
}

// CreateConnection opens a SQLite database with the configured driver
func (f *ConnectionFactory) CreateConnection(ctx context.Context, config *repositories.Config) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	absPath, err := filepath.Abs(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	var dsn string
	if config.IsPureGo() {
		dsn = buildPureGoDSN(absPath, config)
	} else {
		dsn = buildCGODSN(absPath, config)
	}

	f.logger.WithFields(logrus.Fields{
		"driver": config.Database.Driver,
		"path":   absPath,
		"dsn":    dsn,
	}).Info("Creating SQLite connection")

	db, err := sql.Open(config.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	f.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	f.applySQLiteSettings(ctx, db)

	f.logger.WithField("path", absPath).Info("SQLite connection established")
	return db, nil
}

// buildCGODSN builds a github.com/mattn/go-sqlite3 DSN. Transactions start
// IMMEDIATE so concurrent writers wait on the busy timeout instead of failing
// on lock upgrade.
func buildCGODSN(path string, config *repositories.Config) string {
	options := []string{"_txlock=immediate"}

	if config.Database.JournalMode != "" {
		options = append(options, fmt.Sprintf("_journal_mode=%s", config.Database.JournalMode))
	}
	if config.Database.Synchronous != "" {
		options = append(options, fmt.Sprintf("_synchronous=%s", config.Database.Synchronous))
	}
	if config.Database.ForeignKeys {
		options = append(options, "_foreign_keys=on")
	}
	if config.Database.BusyTimeout > 0 {
		options = append(options, fmt.Sprintf("_busy_timeout=%d", config.Database.BusyTimeout))
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(options, "&"))
}

// buildPureGoDSN builds a modernc.org/sqlite DSN, which takes pragmas as
// _pragma=name(value) pairs
func buildPureGoDSN(path string, config *repositories.Config) string {
	options := []string{"_txlock=immediate", "_time_format=sqlite"}

	if config.Database.JournalMode != "" {
		options = append(options, fmt.Sprintf("_pragma=journal_mode(%s)", config.Database.JournalMode))
	}
	if config.Database.Synchronous != "" {
		options = append(options, fmt.Sprintf("_pragma=synchronous(%s)", config.Database.Synchronous))
	}
	if config.Database.ForeignKeys {
		options = append(options, "_pragma=foreign_keys(1)")
	}
	if config.Database.BusyTimeout > 0 {
		options = append(options, fmt.Sprintf("_pragma=busy_timeout(%d)", config.Database.BusyTimeout))
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(options, "&"))
}

// applySQLiteSettings applies connection-independent tuning. Failures are logged only.
func (f *ConnectionFactory) applySQLiteSettings(ctx context.Context, db *sql.DB) {
	settings := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA optimize",
	}

	for _, setting := range settings {
		if _, err := db.ExecContext(ctx, setting); err != nil {
			f.logger.WithError(err).WithField("setting", setting).Warn("Failed to apply SQLite setting")
		} else {
			f.logger.WithField("setting", setting).Debug("Applied SQLite setting")
		}
	}
}

// configureConnectionPool configures the database connection pool
func (f *ConnectionFactory) configureConnectionPool(db *sql.DB, config *repositories.Config) {
	db.SetMaxOpenConns(config.Pool.MaxOpenConns)
	db.SetMaxIdleConns(config.Pool.MaxIdleConns)
	db.SetConnMaxLifetime(config.Pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.Pool.ConnMaxIdleTime)

	f.logger.WithFields(logrus.Fields{
		"max_open_conns":     config.Pool.MaxOpenConns,
		"max_idle_conns":     config.Pool.MaxIdleConns,
		"conn_max_lifetime":  config.Pool.ConnMaxLifetime,
		"conn_max_idle_time": config.Pool.ConnMaxIdleTime,
	}).Debug("Configured connection pool")
}

// HealthChecker provides health checking capabilities for database connections
type HealthChecker struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *sql.DB, logger *logrus.Logger) *HealthChecker {
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthChecker{
		db:     db,
		logger: logger,
	}
}

// CheckHealth pings the database and verifies foreign keys are enforced
func (h *HealthChecker) CheckHealth(ctx context.Context) error {
	start := time.Now()
	defer func() {
		h.logger.WithField("duration", time.Since(start)).Debug("Health check completed")
	}()

	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("test query returned unexpected result: %d", result)
	}

	var fkEnabled int
	if err := h.db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		return fmt.Errorf("failed to check foreign key status: %w", err)
	}
	if fkEnabled != 1 {
		return fmt.Errorf("foreign keys are not enabled")
	}

	return nil
}

// GetHealthStatus returns detailed health status
func (h *HealthChecker) GetHealthStatus(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{
		CheckedAt: start,
		Details:   make(map[string]string),
	}

	err := h.CheckHealth(ctx)
	status.ResponseTime = time.Since(start)

	if err != nil {
		status.Healthy = false
		status.Message = err.Error()
		return status
	}

	status.Healthy = true
	status.Message = "Database is healthy"

	stats := h.db.Stats()
	status.Details["open_connections"] = fmt.Sprintf("%d", stats.OpenConnections)
	status.Details["in_use"] = fmt.Sprintf("%d", stats.InUse)
	status.Details["idle"] = fmt.Sprintf("%d", stats.Idle)
	status.Details["wait_count"] = fmt.Sprintf("%d", stats.WaitCount)
	status.Details["wait_duration"] = stats.WaitDuration.String()

	return status
}
