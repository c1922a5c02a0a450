package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/database"
	"market-ledger/internal/repositories"
)

func main() {
	var (
		dbPath  = flag.String("db", "./data/ledger.db", "Database file path")
		driver  = flag.String("driver", repositories.DriverCGO, "Database driver: sqlite3 (cgo) or sqlite (pure Go)")
		action  = flag.String("action", "up", "Migration action: up, down, status, validate")
		verbose = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"driver":  *driver,
		"action":  *action,
	}).Info("Starting migration tool")

	config := repositories.DefaultConfig()
	config.Database.Path = absDBPath
	config.Database.Driver = *driver
	// the tool applies migrations itself
	config.Migration.Enabled = false

	manager := database.NewManager(config, logger)
	if err := manager.Connect(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer manager.Close()

	migrations := manager.Migrations()

	switch *action {
	case "up":
		if err := migrations.RunMigrations(); err != nil {
			logger.WithError(err).Fatal("Migration up failed")
		}
	case "down":
		if err := migrations.RollbackMigration(); err != nil {
			logger.WithError(err).Fatal("Migration down failed")
		}
	case "status":
		if err := showMigrationStatus(migrations); err != nil {
			logger.WithError(err).Fatal("Failed to get migration status")
		}
	case "validate":
		if err := migrations.ValidateSchema(); err != nil {
			logger.WithError(err).Fatal("Schema validation failed")
		}
		fmt.Println("Schema validation passed successfully")
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: up, down, status, validate")
	}

	logger.Info("Migration tool completed successfully")
}

func showMigrationStatus(migrations *database.MigrationManager) error {
	status, err := migrations.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d (latest %d)\n", status.Version, status.Latest)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)
	fmt.Printf("  Timestamp: %s\n", status.Timestamp.Format("2006-01-02 15:04:05"))

	return nil
}
