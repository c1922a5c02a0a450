package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/filelock"
	"market-ledger/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	Mirrors   *Mirrors
	Loader    LoaderService
	Purchases PurchaseService
	Purges    PurgeService
	Profiles  ProfileService
	Inventory InventoryService
	Exports   ExportService
	Archives  ArchiveService
	Sales     SalesService

	storage storage.FileStorage
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	LockOptions filelock.Options
	Storage     storage.FileStorage
	Publisher   EventPublisher
	Logger      *logrus.Logger
}

// NewServiceContainer creates a new service container with all services. The
// mirrors start empty; call Mirrors.Rebuild to fill them from the store.
func NewServiceContainer(repos repositories.RepositoryManager, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository manager cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("service config cannot be nil")
	}
	if config.Storage == nil {
		return nil, fmt.Errorf("archive storage cannot be nil")
	}

	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
	}
	lockOpts := config.LockOptions
	if lockOpts.Timeout <= 0 {
		lockOpts = filelock.DefaultOptions()
	}

	mirrors := NewMirrors(repos, logger)
	// purchase and purge must serialise on the same item locks
	locks := newItemLocks()

	return &ServiceContainer{
		Mirrors:   mirrors,
		Loader:    NewLoaderService(repos, mirrors, lockOpts, logger),
		Purchases: NewPurchaseService(repos, mirrors, locks, config.Publisher, logger),
		Purges:    NewPurgeService(repos, mirrors, locks, config.Publisher, logger),
		Profiles:  NewProfileService(repos, mirrors, logger),
		Inventory: NewInventoryService(repos, mirrors, logger),
		Exports:   NewExportService(mirrors, lockOpts, logger),
		Archives:  NewArchiveService(mirrors, config.Storage, logger),
		Sales:     NewSalesService(repos),
		storage:   config.Storage,
	}, nil
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	switch {
	case sc.Mirrors == nil:
		return fmt.Errorf("mirrors are nil")
	case sc.Loader == nil:
		return fmt.Errorf("loader service is nil")
	case sc.Purchases == nil:
		return fmt.Errorf("purchase service is nil")
	case sc.Purges == nil:
		return fmt.Errorf("purge service is nil")
	case sc.Profiles == nil:
		return fmt.Errorf("profile service is nil")
	case sc.Inventory == nil:
		return fmt.Errorf("inventory service is nil")
	case sc.Exports == nil:
		return fmt.Errorf("export service is nil")
	case sc.Archives == nil:
		return fmt.Errorf("archive service is nil")
	case sc.Sales == nil:
		return fmt.Errorf("sales service is nil")
	}
	return nil
}

// Close releases the archive storage
func (sc *ServiceContainer) Close() error {
	if sc.storage != nil {
		return sc.storage.Close()
	}
	return nil
}
