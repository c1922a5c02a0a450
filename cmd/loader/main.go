package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/config"
	"market-ledger/internal/models"
	"market-ledger/internal/services"
	"market-ledger/pkg/server"
)

func main() {
	var (
		dbPath   = flag.String("db", "", "Database file path (defaults to DB_PATH)")
		dataDir  = flag.String("dir", "./data", "Directory holding the record files")
		profiles = flag.String("profiles", "profiles", "Profile records, relative to -dir")
		frames   = flag.String("frames", "frames", "Frame records, relative to -dir")
		cars     = flag.String("cars", "cars", "Car records, relative to -dir")
		bikes    = flag.String("bikes", "bikes", "Bike records, relative to -dir")
		action   = flag.String("action", "load", "Action: check, load, export, archive")
		kind     = flag.String("kind", "cars", "Kind to export")
		output   = flag.String("out", "", "Export target file")
		key      = flag.String("key", "", "Archive key (generated when empty)")
		verbose  = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDir, err := filepath.Abs(*dataDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute data path")
	}
	plan := services.LoadPlan{
		Profiles: filepath.Join(absDir, *profiles),
		Frames:   filepath.Join(absDir, *frames),
		Cars:     filepath.Join(absDir, *cars),
		Bikes:    filepath.Join(absDir, *bikes),
	}

	logger.WithFields(logrus.Fields{
		"data_dir": absDir,
		"action":   *action,
	}).Info("Starting loader")

	if *action == "check" {
		checkFiles(plan)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *verbose {
		cfg.Log.Level = "debug"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := server.NewContainer(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}
	defer container.Close()

	switch *action {
	case "load":
		err = runLoad(ctx, container.Services, plan)
	case "export":
		err = runExport(ctx, container.Services, *kind, *output)
	case "archive":
		err = runArchive(ctx, container.Services, *key)
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: check, load, export, archive")
	}
	if err != nil {
		logger.WithError(err).Fatalf("%s failed", *action)
	}

	logger.Info("Loader completed successfully")
}

// checkFiles reports which record files would be picked up, with or without
// the .txt suffix
func checkFiles(plan services.LoadPlan) {
	for _, entry := range []struct {
		kind models.Kind
		path string
	}{
		{models.KindProfile, plan.Profiles},
		{models.KindFrame, plan.Frames},
		{models.KindCar, plan.Cars},
		{models.KindBike, plan.Bikes},
	} {
		found := entry.path
		if _, err := os.Stat(found); err != nil {
			found += ".txt"
			if _, err := os.Stat(found); err != nil {
				fmt.Printf("  %-8s missing (%s)\n", entry.kind, entry.path)
				continue
			}
		}
		fmt.Printf("  %-8s %s\n", entry.kind, found)
	}
}

func runLoad(ctx context.Context, svc *services.ServiceContainer, plan services.LoadPlan) error {
	results, err := svc.Loader.LoadAll(ctx, plan)
	for _, r := range results {
		switch {
		case !r.Found:
			fmt.Printf("  %-8s not found, later kinds skipped\n", r.Kind)
		case r.Complete:
			fmt.Printf("  %-8s loaded %d\n", r.Kind, r.Loaded)
		default:
			fmt.Printf("  %-8s loaded %d, stopped: %s\n", r.Kind, r.Loaded, r.Reason)
		}
	}
	return err
}

func runExport(ctx context.Context, svc *services.ServiceContainer, kind, output string) error {
	if output == "" {
		return fmt.Errorf("-out is required for export")
	}
	k, err := models.ParseKind(kind)
	if err != nil {
		return err
	}

	n, err := svc.Exports.Export(ctx, k, output)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d %s records to %s\n", n, k, output)
	return nil
}

func runArchive(ctx context.Context, svc *services.ServiceContainer, key string) error {
	info, err := svc.Archives.Save(ctx, key)
	if err != nil {
		return err
	}
	fmt.Printf("Archived %d cars and %d bikes to %s (%d bytes)\n", info.Cars, info.Bikes, info.Key, info.Size)
	return nil
}
