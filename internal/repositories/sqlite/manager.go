package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

// SQLiteRepositoryManager implements the RepositoryManager interface for SQLite
type SQLiteRepositoryManager struct {
	db                 *sql.DB
	logger             *logrus.Logger
	profileRepo        repositories.ProfileRepository
	frameRepo          repositories.FrameRepository
	carRepo            repositories.CarRepository
	bikeRepo           repositories.BikeRepository
	saleRepo           repositories.SaleRepository
	transactionManager repositories.TransactionManager
}

// NewSQLiteRepositoryManager creates a repository manager on an open database
func NewSQLiteRepositoryManager(db *sql.DB, logger *logrus.Logger) repositories.RepositoryManager {
	if logger == nil {
		logger = logrus.New()
	}

	return &SQLiteRepositoryManager{
		db:                 db,
		logger:             logger,
		profileRepo:        NewProfileRepository(db, logger),
		frameRepo:          NewFrameRepository(db, logger),
		carRepo:            NewCarRepository(db, logger),
		bikeRepo:           NewBikeRepository(db, logger),
		saleRepo:           NewSaleRepository(db, logger),
		transactionManager: NewSQLiteTransactionManager(db, logger),
	}
}

// BeginTransaction starts a new transaction
func (m *SQLiteRepositoryManager) BeginTransaction(ctx context.Context) (repositories.Transaction, error) {
	return m.transactionManager.BeginTransaction(ctx)
}

// WithTransaction executes a function within a transaction
func (m *SQLiteRepositoryManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.transactionManager.WithTransaction(ctx, fn)
}

// Profiles returns the profile repository
func (m *SQLiteRepositoryManager) Profiles() repositories.ProfileRepository {
	return m.profileRepo
}

// Frames returns the frame repository
func (m *SQLiteRepositoryManager) Frames() repositories.FrameRepository {
	return m.frameRepo
}

// Cars returns the car repository
func (m *SQLiteRepositoryManager) Cars() repositories.CarRepository {
	return m.carRepo
}

// Bikes returns the bike repository
func (m *SQLiteRepositoryManager) Bikes() repositories.BikeRepository {
	return m.bikeRepo
}

// Sales returns the sale repository
func (m *SQLiteRepositoryManager) Sales() repositories.SaleRepository {
	return m.saleRepo
}

// Close closes the underlying database
func (m *SQLiteRepositoryManager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// Health checks the health of the repository connections
func (m *SQLiteRepositoryManager) Health(ctx context.Context) error {
	if m.db == nil {
		return repositories.ConnectionError(repositories.ErrConnection)
	}

	if err := m.db.PingContext(ctx); err != nil {
		return repositories.ConnectionError(err)
	}

	var result int
	if err := m.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return repositories.ConnectionError(err)
	}

	if result != 1 {
		return repositories.ConnectionError(repositories.ErrConnection)
	}

	return nil
}
