package sqlite

import (
	"context"
	"database/sql"

	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/sirupsen/logrus"
)

const carColumns = listingColumns + `, year, power, passengers, transmission, country`

// CarRepository implements the CarRepository interface for SQLite
type CarRepository struct {
	itemRepository[models.Car]
}

// NewCarRepository creates a new SQLite car repository
func NewCarRepository(db *sql.DB, logger *logrus.Logger) repositories.CarRepository {
	return &CarRepository{
		itemRepository: itemRepository[models.Car]{
			BaseRepository: NewBaseRepository[models.Car](db, "cars", "car", logger),
		},
	}
}

// Create creates a new car. The owner must already exist.
func (r *CarRepository) Create(ctx context.Context, car *models.Car) error {
	if err := car.Validate(); err != nil {
		return repositories.ValidationError("car", "", err)
	}

	query := `
		INSERT INTO cars (
			name, brand, auction, price, weight, owner_id, available, created_at, updated_at,
			year, power, passengers, transmission, country
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	args := append(r.listingArgs(&car.Listing), car.Year, car.Power, car.Passengers, car.Transmission, car.Country)
	result, err := r.executeExec(ctx, "create", query, args...)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return repositories.NewRepositoryError("create", "car", "", err)
	}
	car.ID = id
	return nil
}

// GetByID retrieves a car by ID
func (r *CarRepository) GetByID(ctx context.Context, id int64) (*models.Car, error) {
	if err := r.validateID(id); err != nil {
		return nil, err
	}

	row := r.executeQueryRow(ctx, "get_by_id", `SELECT `+carColumns+` FROM cars WHERE id = ?`, id)
	car, err := scanCar(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repositories.NotFoundError("car", formatID(id))
		}
		return nil, repositories.NewRepositoryError("get_by_id", "car", formatID(id), err)
	}
	return car, nil
}

// List retrieves cars in store order
func (r *CarRepository) List(ctx context.Context, opts repositories.ListOptions) ([]*models.Car, error) {
	page, args := pageClause(opts)
	rows, err := r.executeQuery(ctx, "list", `SELECT `+carColumns+` FROM cars ORDER BY id`+page, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cars []*models.Car
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, repositories.NewRepositoryError("list", "car", "", err)
		}
		cars = append(cars, car)
	}

	if err = rows.Err(); err != nil {
		return nil, repositories.NewRepositoryError("list", "car", "", err)
	}
	return cars, nil
}

func scanCar(s scanner) (*models.Car, error) {
	car := &models.Car{}
	dest := append(listingDest(&car.Listing), &car.Year, &car.Power, &car.Passengers, &car.Transmission, &car.Country)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return car, nil
}
