package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// inventoryService implements the InventoryService interface
type inventoryService struct {
	repos   repositories.Repositories
	mirrors *Mirrors
	catalog *catalog
	logger  *logrus.Logger
}

// NewInventoryService creates a new inventory service instance
func NewInventoryService(repos repositories.Repositories, mirrors *Mirrors, logger *logrus.Logger) InventoryService {
	if logger == nil {
		logger = logrus.New()
	}
	return &inventoryService{
		repos:   repos,
		mirrors: mirrors,
		catalog: newCatalog(repos, mirrors),
		logger:  logger,
	}
}

// ListCars returns the mirrored cars, optionally ordered by name then price
func (s *inventoryService) ListCars(ctx context.Context, sorted bool) []*models.Car {
	cars := s.mirrors.Cars.List()
	for _, c := range cars {
		s.mirrors.hydrate(c)
	}
	if sorted {
		models.SortCars(cars)
	}
	return cars
}

// ListBikes returns the mirrored bikes in load order
func (s *inventoryService) ListBikes(ctx context.Context) []*models.Bike {
	bikes := s.mirrors.Bikes.List()
	for _, b := range bikes {
		s.mirrors.hydrate(b)
	}
	return bikes
}

// GetItem reads an item from the store with its owner (and frame) attached
func (s *inventoryService) GetItem(ctx context.Context, kind models.Kind, id int64) (models.Item, error) {
	ops, err := s.catalog.ops(kind)
	if err != nil {
		return nil, err
	}

	item, err := ops.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, translate(err))
	}

	base := item.Base()
	owner, err := s.repos.Profiles().GetByID(ctx, base.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get owner: %w", translate(err))
	}
	base.Owner = owner

	if bike, ok := item.(*models.Bike); ok {
		frame, err := s.repos.Frames().GetByID(ctx, bike.FrameID)
		if err != nil {
			return nil, fmt.Errorf("failed to get frame: %w", translate(err))
		}
		bike.Frame = frame
	}
	return item, nil
}

// Overview computes the depreciated power figure of a stored car
func (s *inventoryService) Overview(ctx context.Context, carID int64) (*CarOverview, error) {
	car, err := s.repos.Cars().GetByID(ctx, carID)
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", translate(err))
	}
	return &CarOverview{
		CarID:         car.ID,
		Name:          car.Name,
		Year:          car.Year,
		Power:         car.Power,
		OverviewPower: car.OverviewPower(),
		ReferenceYear: models.OverviewReferenceYear,
	}, nil
}
