package services

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/filelock"
	"market-ledger/internal/flatfile"
	"market-ledger/internal/models"
)

// exportService implements the ExportService interface
type exportService struct {
	mirrors  *Mirrors
	lockOpts filelock.Options
	logger   *logrus.Logger
}

// NewExportService creates a new export service instance
func NewExportService(mirrors *Mirrors, lockOpts filelock.Options, logger *logrus.Logger) ExportService {
	if logger == nil {
		logger = logrus.New()
	}
	return &exportService{mirrors: mirrors, lockOpts: lockOpts, logger: logger}
}

// Export writes the mirror of one kind to path in the loader's record format.
// The file is truncated only once the exclusive lock is held, so a concurrent
// load never observes a half-written file.
func (s *exportService) Export(ctx context.Context, kind models.Kind, path string) (int, error) {
	if err := ValidateRequest(&ExportRequest{Kind: string(kind), Path: path}); err != nil {
		return 0, err
	}
	kind, _ = models.ParseKind(string(kind))

	records := s.records(kind)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	lock, err := filelock.Acquire(ctx, f, filelock.Exclusive, s.lockOpts)
	if err != nil {
		return 0, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	log := s.logger.WithFields(logrus.Fields{"path": path, "kind": kind})
	log.Debug("Locked file")
	defer func() {
		if err := lock.Release(); err != nil {
			log.WithError(err).Warn("Failed to release lock on file")
			return
		}
		log.Debug("Released lock on file")
	}()

	if err := f.Truncate(0); err != nil {
		return 0, fmt.Errorf("failed to truncate %s: %w", path, err)
	}

	w := flatfile.NewWriter(f)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return w.Count(), fmt.Errorf("failed to write %s record: %w", kind, err)
		}
	}
	if err := w.Flush(); err != nil {
		return w.Count(), fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return w.Count(), fmt.Errorf("failed to sync %s: %w", path, err)
	}

	log.WithField("records", w.Count()).Info("Export finished")
	return w.Count(), nil
}

func (s *exportService) records(kind models.Kind) [][]string {
	var out [][]string
	switch kind {
	case models.KindProfile:
		for _, p := range s.mirrors.Profiles.List() {
			out = append(out, p.Record())
		}
	case models.KindFrame:
		for _, f := range s.mirrors.Frames.List() {
			out = append(out, f.Record())
		}
	case models.KindCar:
		for _, c := range s.mirrors.Cars.List() {
			out = append(out, c.Record())
		}
	case models.KindBike:
		for _, b := range s.mirrors.Bikes.List() {
			out = append(out, b.Record())
		}
	}
	return out
}
