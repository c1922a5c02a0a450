package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/metrics"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// purgeService implements the PurgeService interface
type purgeService struct {
	repos     repositories.RepositoryManager
	mirrors   *Mirrors
	catalog   *catalog
	locks     *itemLocks
	publisher EventPublisher
	logger    *logrus.Logger
}

// NewPurgeService creates a new purge service instance
func NewPurgeService(repos repositories.RepositoryManager, mirrors *Mirrors, locks *itemLocks, publisher EventPublisher, logger *logrus.Logger) PurgeService {
	if logger == nil {
		logger = logrus.New()
	}
	if locks == nil {
		locks = newItemLocks()
	}
	return &purgeService{
		repos:     repos,
		mirrors:   mirrors,
		catalog:   newCatalog(repos, mirrors),
		locks:     locks,
		publisher: publisher,
		logger:    logger,
	}
}

// PurgeBrand removes every car and bike whose brand matches exactly
func (s *purgeService) PurgeBrand(ctx context.Context, brand string) (*PurgeResult, error) {
	if err := ValidateRequest(&PurgeRequest{Brand: brand}); err != nil {
		return nil, err
	}

	result := &PurgeResult{Brand: brand, Removed: make(map[models.Kind]int)}
	for _, kind := range []models.Kind{models.KindCar, models.KindBike} {
		n, err := s.purge(ctx, kind, brand)
		result.Removed[kind] = n
		result.Total += n
		if err != nil {
			return result, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"brand": brand,
		"cars":  result.Removed[models.KindCar],
		"bikes": result.Removed[models.KindBike],
	}).Info("Brand purged")

	if result.Total > 0 {
		s.publish(brand, result.Removed)
	}
	return result, nil
}

// PurgeBrandOf removes the items of one kind whose brand matches exactly
func (s *purgeService) PurgeBrandOf(ctx context.Context, kind models.Kind, brand string) (int, error) {
	if err := ValidateRequest(&PurgeRequest{Brand: brand, Kind: string(kind)}); err != nil {
		return 0, err
	}
	n, err := s.purge(ctx, kind, brand)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.publish(brand, map[models.Kind]int{kind: n})
	}
	return n, nil
}

// purge deletes each candidate in its own transaction, then drops it from
// the mirror. Mirror entries the store no longer holds are dropped without
// being counted.
func (s *purgeService) purge(ctx context.Context, kind models.Kind, brand string) (int, error) {
	ops, err := s.catalog.ops(kind)
	if err != nil {
		return 0, err
	}

	stored, err := ops.idsByBrand(ctx, brand)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s ids for brand: %w", kind, translate(err))
	}
	candidates := unionIDs(stored, ops.mirrorIDsByBrand(brand))

	removed := 0
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		unlock := s.locks.lock(kind, id)
		err := s.mirrors.Track(func() error {
			err := s.repos.WithTransaction(ctx, func(txCtx context.Context) error {
				return ops.delete(txCtx, id)
			})
			if err != nil && !repositories.IsNotFound(err) {
				return err
			}
			ops.mirrorRemove(id)
			return err
		})
		unlock()
		switch {
		case err == nil:
			removed++
			metrics.PurgedItems.WithLabelValues(string(kind)).Inc()
		case repositories.IsNotFound(err):
			s.logger.WithFields(logrus.Fields{"kind": kind, "id": id}).Warn("Dropping mirror entry missing from store")
		default:
			return removed, fmt.Errorf("failed to delete %s %d: %w", kind, id, translate(err))
		}
	}
	return removed, nil
}

func (s *purgeService) publish(brand string, removed map[models.Kind]int) {
	if s.publisher == nil {
		return
	}
	counts := make(map[models.Kind]int, len(removed))
	for k, v := range removed {
		counts[k] = v
	}
	go func() {
		if err := s.publisher.PublishBrandPurged(context.Background(), brand, counts); err != nil {
			s.logger.WithError(err).WithField("brand", brand).Warn("Failed to publish brand.purged event")
		}
	}()
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]struct{}, len(a)+len(b))
	var out []int64
	for _, list := range [][]int64{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
