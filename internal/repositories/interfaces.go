package repositories

import (
	"context"

	"market-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// BaseRepository defines the operations shared by every entity repository
type BaseRepository[T any] interface {
	// Create persists a new entity and assigns its ID
	Create(ctx context.Context, entity *T) error

	// GetByID retrieves an entity by its ID
	GetByID(ctx context.Context, id int64) (*T, error)

	// List retrieves entities in store order
	List(ctx context.Context, opts ListOptions) ([]*T, error)

	// Count returns the total number of entities
	Count(ctx context.Context) (int64, error)
}

// ProfileRepository defines operations specific to profile management
type ProfileRepository interface {
	BaseRepository[models.Profile]

	// Reference returns a handle to an existing profile without loading it
	Reference(ctx context.Context, id int64) (models.ProfileRef, error)

	// GetByNick retrieves a profile by its unique nickname
	GetByNick(ctx context.Context, nick string) (*models.Profile, error)

	// FindProfiles returns profiles with age > MinAge and balance < MaxBalance
	FindProfiles(ctx context.Context, query ProfileQuery) ([]*models.Profile, error)

	// UpdatePassword replaces the stored credential
	UpdatePassword(ctx context.Context, id int64, password string) error

	// UpdateBalance sets the balance of a profile
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
}

// FrameRepository defines operations specific to frame management
type FrameRepository interface {
	BaseRepository[models.Frame]

	// Reference returns a handle to an existing frame without loading it
	Reference(ctx context.Context, id int64) (models.FrameRef, error)
}

// ItemRepository defines the operations shared by car and bike storage
type ItemRepository[T any] interface {
	BaseRepository[T]

	// ListIDsByBrand returns the IDs of items whose brand matches exactly
	ListIDsByBrand(ctx context.Context, brand string) ([]int64, error)

	// Delete removes an item
	Delete(ctx context.Context, id int64) error

	// TransferOwnership reassigns an available item to a new owner and marks it
	// unavailable. Returns ErrConcurrency if the item was no longer available.
	TransferOwnership(ctx context.Context, id, newOwnerID int64) error
}

// CarRepository stores cars
type CarRepository interface {
	ItemRepository[models.Car]
}

// BikeRepository stores bikes
type BikeRepository interface {
	ItemRepository[models.Bike]
}

// SaleRepository stores the retained purchase history
type SaleRepository interface {
	// Create records a completed sale
	Create(ctx context.Context, sale *models.Sale) error

	// ListByItem returns the sales of one item, oldest first
	ListByItem(ctx context.Context, kind models.Kind, itemID int64) ([]*models.Sale, error)

	// List returns all sales, oldest first
	List(ctx context.Context, opts ListOptions) ([]*models.Sale, error)
}
