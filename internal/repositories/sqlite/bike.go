package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

const bikeColumns = listingColumns + `, gear, frame_id, lights, bell, brakes`

// BikeRepository implements the BikeRepository interface for SQLite
type BikeRepository struct {
	itemRepository[models.Bike]
}

// NewBikeRepository creates a new SQLite bike repository
func NewBikeRepository(db *sql.DB, logger *logrus.Logger) repositories.BikeRepository {
	return &BikeRepository{
		itemRepository: itemRepository[models.Bike]{
			BaseRepository: NewBaseRepository[models.Bike](db, "bikes", "bike", logger),
		},
	}
}

// Create creates a new bike. Owner and frame must already exist.
func (r *BikeRepository) Create(ctx context.Context, bike *models.Bike) error {
	if err := bike.Validate(); err != nil {
		return repositories.ValidationError("bike", "", err)
	}

	query := `
		INSERT INTO bikes (
			name, brand, auction, price, weight, owner_id, available, created_at, updated_at,
			gear, frame_id, lights, bell, brakes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := append(r.listingArgs(&bike.Listing),
		bike.Gear,
		bike.FrameID,
		boolToInt(bike.Lights),
		boolToInt(bike.Bell),
		boolToInt(bike.Brakes),
	)
	result, err := r.executeExec(ctx, "create", query, args...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return repositories.NewRepositoryError("create", "bike", "", err)
	}
	bike.ID = id
	return nil
}

// GetByID retrieves a bike by ID
func (r *BikeRepository) GetByID(ctx context.Context, id int64) (*models.Bike, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	row := r.executeQueryRow(ctx, "get_by_id", `SELECT `+bikeColumns+` FROM bikes WHERE id = ?`, id)
	bike, err := scanBike(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("bike", formatID(id))
		}
		return nil, repositories.NewRepositoryError("get_by_id", "bike", formatID(id), err)
	}
	return bike, nil
}

// List retrieves bikes in store order
func (r *BikeRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Bike, error) {
	page, args := pageClause(opts)
	rows, err := r.executeQuery(ctx, "list", `SELECT `+bikeColumns+` FROM bikes ORDER BY id`+page, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bikes []*models.Bike
	for rows.Next() {
		bike, err := scanBike(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", "bike", "", err)
		}
		bikes = append(bikes, bike)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "bike", "", err)
	}
	return bikes, nil
}

func scanBike(s scanner) (*models.Bike, error) {
	bike := &models.Bike{}
	dest := append(listingDest(&bike.Listing), &bike.Gear, &bike.FrameID, &bike.Lights, &bike.Bell, &bike.Brakes)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return bike, nil
}
