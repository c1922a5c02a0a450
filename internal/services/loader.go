package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/filelock"
	"market-ledger/internal/flatfile"
	"market-ledger/internal/metrics"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// loaderService implements the LoaderService interface
type loaderService struct {
	repos    repositories.RepositoryManager
	mirrors  *Mirrors
	lockOpts filelock.Options
	logger   *logrus.Logger
}

// NewLoaderService creates a new loader service instance
func NewLoaderService(repos repositories.RepositoryManager, mirrors *Mirrors, lockOpts filelock.Options, logger *logrus.Logger) LoaderService {
	if logger == nil {
		logger = logrus.New()
	}
	return &loaderService{
		repos:    repos,
		mirrors:  mirrors,
		lockOpts: lockOpts,
		logger:   logger,
	}
}

// LoadProfiles loads a profile file
func (s *loaderService) LoadProfiles(ctx context.Context, path string) (bool, error) {
	return s.loadFound(ctx, models.KindProfile, path)
}

// LoadFrames loads a frame file
func (s *loaderService) LoadFrames(ctx context.Context, path string) (bool, error) {
	return s.loadFound(ctx, models.KindFrame, path)
}

// LoadCars loads a car file. Owners must already be stored.
func (s *loaderService) LoadCars(ctx context.Context, path string) (bool, error) {
	return s.loadFound(ctx, models.KindCar, path)
}

// LoadBikes loads a bike file. Owners and frames must already be stored.
func (s *loaderService) LoadBikes(ctx context.Context, path string) (bool, error) {
	return s.loadFound(ctx, models.KindBike, path)
}

func (s *loaderService) loadFound(ctx context.Context, kind models.Kind, path string) (bool, error) {
	result, err := s.Load(ctx, kind, path)
	if err != nil {
		return result != nil && result.Found, err
	}
	return result.Found, nil
}

// LoadAll loads the plan in dependency order
func (s *loaderService) LoadAll(ctx context.Context, plan LoadPlan) ([]*LoadResult, error) {
	steps := []struct {
		kind models.Kind
		path string
	}{
		{models.KindProfile, plan.Profiles},
		{models.KindFrame, plan.Frames},
		{models.KindCar, plan.Cars},
		{models.KindBike, plan.Bikes},
	}

	var results []*LoadResult
	for _, step := range steps {
		if step.path == "" {
			continue
		}
		result, err := s.Load(ctx, step.kind, step.path)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, err
		}
		if !result.Found {
			return results, fmt.Errorf("%w: %s file %s", ErrNotFound, step.kind, step.path)
		}
	}
	return results, nil
}

// Load reads the file under a shared advisory lock and commits every record
// in its own transaction. The first bad record stops the load; records
// committed before it stay.
func (s *loaderService) Load(ctx context.Context, kind models.Kind, path string) (*LoadResult, error) {
	if err := ValidateRequest(&LoadRequest{Kind: string(kind), Path: path}); err != nil {
		return nil, err
	}
	kind, _ = models.ParseKind(string(kind))

	result := &LoadResult{Kind: kind, Path: path}

	resolved, ok := resolvePath(path)
	if !ok {
		result.Reason = "file not found"
		s.logger.WithFields(logrus.Fields{"path": path, "kind": kind}).Warn("Load file not found")
		return result, nil
	}
	result.Path = resolved
	result.Found = true

	f, err := os.Open(resolved)
	if err != nil {
		return result, fmt.Errorf("failed to open %s: %w", resolved, err)
	}
	defer f.Close()

	lock, err := filelock.Acquire(ctx, f, filelock.Shared, s.lockOpts)
	if err != nil {
		result.Reason = err.Error()
		return result, fmt.Errorf("failed to lock %s: %w", resolved, err)
	}
	log := s.logger.WithFields(logrus.Fields{"path": resolved, "kind": kind})
	log.Debug("Locked file")
	defer func() {
		if err := lock.Release(); err != nil {
			log.WithError(err).Warn("Failed to release lock on file")
			return
		}
		log.Debug("Released lock on file")
	}()

	reader, err := flatfile.NewReader(f, kind)
	if err != nil {
		return result, err
	}

	for {
		if err := ctx.Err(); err != nil {
			result.Reason = fmt.Sprintf("interrupted: %v", err)
			break
		}

		fields, err := reader.Next()
		if errors.Is(err, io.EOF) {
			result.Complete = true
			break
		}
		if err != nil {
			s.recordFailure(log, result, reader.Record()+1, err)
			break
		}

		if err := s.persist(ctx, kind, fields); err != nil {
			if isRecordFault(err) {
				s.recordFailure(log, result, reader.Record(), err)
				break
			}
			metrics.LoadRecords.WithLabelValues(string(kind), "error").Inc()
			result.Reason = err.Error()
			return result, fmt.Errorf("failed to store %s record %d: %w", kind, reader.Record(), err)
		}

		result.Loaded++
		metrics.LoadRecords.WithLabelValues(string(kind), "loaded").Inc()
	}

	log.WithFields(logrus.Fields{
		"loaded":   result.Loaded,
		"complete": result.Complete,
	}).Info("Load finished")

	return result, nil
}

func (s *loaderService) recordFailure(log *logrus.Entry, result *LoadResult, record int, err error) {
	metrics.LoadRecords.WithLabelValues(string(result.Kind), "rejected").Inc()
	result.Reason = err.Error()
	log.WithError(err).WithField("record", record).Warn("Stopping load at invalid record")
}

// persist decodes one record, resolves its references and commits it
func (s *loaderService) persist(ctx context.Context, kind models.Kind, fields []string) error {
	switch kind {
	case models.KindProfile:
		profile, err := flatfile.DecodeProfile(fields)
		if err != nil {
			return err
		}
		return s.mirrors.Track(func() error {
			if err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
				return s.repos.Profiles().Create(txCtx, profile)
			}); err != nil {
				return err
			}
			s.mirrors.Profiles.Append(profile)
			return nil
		})

	case models.KindFrame:
		frame, err := flatfile.DecodeFrame(fields)
		if err != nil {
			return err
		}
		return s.mirrors.Track(func() error {
			if err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
				return s.repos.Frames().Create(txCtx, frame)
			}); err != nil {
				return err
			}
			s.mirrors.Frames.Append(frame)
			return nil
		})

	case models.KindCar:
		car, err := flatfile.DecodeCar(fields)
		if err != nil {
			return err
		}
		return s.mirrors.Track(func() error {
			if err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
				if _, err := s.repos.Profiles().Reference(txCtx, car.OwnerID); err != nil {
					return fmt.Errorf("owner %d: %w", car.OwnerID, err)
				}
				return s.repos.Cars().Create(txCtx, car)
			}); err != nil {
				return err
			}
			s.mirrors.Cars.Append(car)
			return nil
		})

	case models.KindBike:
		bike, err := flatfile.DecodeBike(fields)
		if err != nil {
			return err
		}
		return s.mirrors.Track(func() error {
			if err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
				if _, err := s.repos.Profiles().Reference(txCtx, bike.OwnerID); err != nil {
					return fmt.Errorf("owner %d: %w", bike.OwnerID, err)
				}
				if _, err := s.repos.Frames().Reference(txCtx, bike.FrameID); err != nil {
					return fmt.Errorf("frame %d: %w", bike.FrameID, err)
				}
				return s.repos.Bikes().Create(txCtx, bike)
			}); err != nil {
				return err
			}
			s.mirrors.Bikes.Append(bike)
			return nil
		})

	default:
		return fmt.Errorf("%w: %s", flatfile.ErrUnsupportedKind, kind)
	}
}

// isRecordFault reports errors caused by the record itself, which end the
// file, as opposed to store faults which are surfaced to the caller
func isRecordFault(err error) bool {
	return errors.Is(err, models.ErrInvalidField) ||
		errors.Is(err, flatfile.ErrTruncatedRecord) ||
		repositories.IsNotFound(err) ||
		repositories.IsValidation(err) ||
		repositories.IsDuplicate(err) ||
		repositories.IsConstraint(err) ||
		errors.Is(err, repositories.ErrInvalidID)
}

// resolvePath returns path, or path with a .txt suffix, whichever names a
// regular file
func resolvePath(path string) (string, bool) {
	for _, candidate := range []string{path, path + ".txt"} {
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
