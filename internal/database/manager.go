package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

// Manager owns the ledger database connection, its migrations and health state
type Manager struct {
	mu              sync.RWMutex
	config          *repositories.Config
	logger          *logrus.Logger
	factory         *ConnectionFactory
	db              *sql.DB
	health          *HealthChecker
	migrations      *MigrationManager
	lastHealthCheck time.Time
	healthStatus    *HealthStatus
}

// NewManager creates a new database manager
func NewManager(config *repositories.Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}

	return &Manager{
		config:  config,
		logger:  logger,
		factory: NewConnectionFactory(logger),
	}
}

// Connect opens the database, applies pending migrations when enabled and
// verifies the connection
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		return fmt.Errorf("database already connected")
	}

	m.logger.Info("Connecting to database...")

	db, err := m.factory.CreateConnection(ctx, m.config)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	migrations := NewMigrationManager(db, m.config.Database.Driver, m.logger)
	if m.config.Migration.Enabled {
		migrations.table = m.config.Migration.Table
		if err := migrations.RunMigrations(); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	health := NewHealthChecker(db, m.logger)
	if m.config.Database.ForeignKeys {
		if err := health.CheckHealth(ctx); err != nil {
			db.Close()
			return fmt.Errorf("initial health check failed: %w", err)
		}
	}

	m.db = db
	m.health = health
	m.migrations = migrations
	m.lastHealthCheck = time.Now()
	m.logger.Info("Database connection established successfully")

	return nil
}

// GetDB returns the database connection, or nil when disconnected
func (m *Manager) GetDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.db
}

// Migrations returns the migration manager for the open connection
func (m *Manager) Migrations() *MigrationManager {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.migrations
}

// CheckHealth performs a health check on the database connection
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	health := m.health
	m.mu.RUnlock()

	if health == nil {
		return fmt.Errorf("database not connected")
	}

	status := health.GetHealthStatus(ctx)

	m.mu.Lock()
	m.lastHealthCheck = status.CheckedAt
	m.healthStatus = status
	m.mu.Unlock()

	if !status.Healthy {
		return fmt.Errorf("%s", status.Message)
	}
	return nil
}

// GetHealthStatus returns the last health status, refreshing it when older than a minute
func (m *Manager) GetHealthStatus(ctx context.Context) *HealthStatus {
	m.mu.RLock()
	cached, last, connected := m.healthStatus, m.lastHealthCheck, m.health != nil
	m.mu.RUnlock()

	if !connected {
		return &HealthStatus{
			Healthy:   false,
			Message:   "Database not connected",
			CheckedAt: time.Now(),
		}
	}

	if cached != nil && time.Since(last) < time.Minute {
		return cached
	}

	m.CheckHealth(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthStatus
}

// CreateBackup writes a consistent copy of the database to backupPath
func (m *Manager) CreateBackup(ctx context.Context, backupPath string) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	m.logger.WithField("backup_path", backupPath).Info("Creating SQLite backup")

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(backupPath, "'", "''"))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create SQLite backup: %w", err)
	}

	m.logger.WithField("backup_path", backupPath).Info("SQLite backup created successfully")
	return nil
}

// StartHealthCheckMonitor starts a background health check monitor
func (m *Manager) StartHealthCheckMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute * 5
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.logger.Info("Health check monitor stopped")
				return
			case <-ticker.C:
				if err := m.CheckHealth(ctx); err != nil {
					m.logger.WithError(err).Warn("Health check failed")
				} else {
					m.logger.Debug("Health check passed")
				}
			}
		}
	}()

	m.logger.WithField("interval", interval).Info("Health check monitor started")
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db == nil {
		return nil
	}

	m.logger.Info("Disconnecting from database...")

	err := m.db.Close()
	m.db = nil
	m.health = nil
	m.migrations = nil
	m.healthStatus = nil

	if err != nil {
		m.logger.WithError(err).Error("Error during database disconnection")
		return fmt.Errorf("failed to disconnect from database: %w", err)
	}

	m.logger.Info("Database disconnected successfully")
	return nil
}
