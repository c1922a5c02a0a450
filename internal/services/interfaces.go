package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
)

// LoaderService ingests flat record files into the store and the mirrors
type LoaderService interface {
	// Load ingests one file. A missing file is reported through LoadResult.Found.
	Load(ctx context.Context, kind models.Kind, path string) (*LoadResult, error)

	// LoadProfiles and friends report false only when the file does not exist
	LoadProfiles(ctx context.Context, path string) (bool, error)
	LoadFrames(ctx context.Context, path string) (bool, error)
	LoadCars(ctx context.Context, path string) (bool, error)
	LoadBikes(ctx context.Context, path string) (bool, error)

	// LoadAll loads the plan in dependency order and stops at the first missing file
	LoadAll(ctx context.Context, plan LoadPlan) ([]*LoadResult, error)
}

// PurchaseService moves items between profiles
type PurchaseService interface {
	Buy(ctx context.Context, kind models.Kind, itemID, buyerID int64) (*PurchaseResult, error)
}

// PurgeService removes items by brand
type PurgeService interface {
	PurgeBrand(ctx context.Context, brand string) (*PurgeResult, error)
	PurgeBrandOf(ctx context.Context, kind models.Kind, brand string) (int, error)
}

// ProfileService covers profile queries and credentials
type ProfileService interface {
	FindProfiles(ctx context.Context, minAge int, maxBalance decimal.Decimal) ([]*models.Profile, error)
	UpdatePassword(ctx context.Context, profileID int64, newPassword string) error
	GetProfile(ctx context.Context, id int64) (*models.Profile, error)
	ListProfiles(ctx context.Context) []*models.Profile
	Authenticate(ctx context.Context, nick, password string) (*models.Profile, error)
}

// InventoryService reads items from the mirrors and the store
type InventoryService interface {
	ListCars(ctx context.Context, sorted bool) []*models.Car
	ListBikes(ctx context.Context) []*models.Bike
	GetItem(ctx context.Context, kind models.Kind, id int64) (models.Item, error)
	Overview(ctx context.Context, carID int64) (*CarOverview, error)
}

// ExportService writes mirror content back to record files
type ExportService interface {
	Export(ctx context.Context, kind models.Kind, path string) (int, error)
}

// ArchiveService saves and restores serialised inventory snapshots
type ArchiveService interface {
	Save(ctx context.Context, key string) (*ArchiveInfo, error)
	Load(ctx context.Context, key string) (*Archive, error)
	List(ctx context.Context) ([]storage.FileMetadata, error)
}

// SalesService exposes the retained purchase history
type SalesService interface {
	List(ctx context.Context, kind models.Kind, itemID int64) ([]*models.Sale, error)
	ListAll(ctx context.Context, opts repositories.ListOptions) ([]*models.Sale, error)
}

// EventPublisher publishes domain events to external systems. Pass nil to
// disable events.
type EventPublisher interface {
	PublishItemSold(ctx context.Context, sale *models.Sale) error
	PublishBrandPurged(ctx context.Context, brand string, removed map[models.Kind]int) error
}

// Loader types

// LoadResult describes the outcome of loading one file
type LoadResult struct {
	Kind     models.Kind `json:"kind"`
	Path     string      `json:"path"`
	Found    bool        `json:"found"`
	Loaded   int         `json:"loaded"`
	Complete bool        `json:"complete"`
	Reason   string      `json:"reason,omitempty"`
}

// LoadPlan names the file for each kind. Empty entries are skipped.
type LoadPlan struct {
	Profiles string `json:"profiles"`
	Frames   string `json:"frames"`
	Cars     string `json:"cars"`
	Bikes    string `json:"bikes"`
}

// LoadRequest is the validated input of a single load
type LoadRequest struct {
	Kind string `json:"kind" validate:"required,oneof=profile frame car bike profiles frames cars bikes"`
	Path string `json:"path" validate:"required,max=4096"`
}

// Purchase types

// PurchaseOutcome is the result of a purchase attempt
type PurchaseOutcome string

const (
	OutcomeSold              PurchaseOutcome = "sold"
	OutcomeAlreadySold       PurchaseOutcome = "already_sold"
	OutcomeInsufficientFunds PurchaseOutcome = "insufficient_funds"
)

// Err returns the domain error matching a rejection, or nil for a sale
func (o PurchaseOutcome) Err() error {
	switch o {
	case OutcomeAlreadySold:
		return ErrAlreadySold
	case OutcomeInsufficientFunds:
		return ErrInsufficientFunds
	}
	return nil
}

// PurchaseResult carries the item as it is after the attempt. Sale is set
// only when the item was sold; its Snapshot is the pre-sale state.
type PurchaseResult struct {
	Outcome PurchaseOutcome `json:"outcome"`
	Item    models.Item     `json:"item"`
	Sale    *models.Sale    `json:"sale,omitempty"`
}

// BuyRequest is the validated body of a purchase
type BuyRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=car bike"`
	ItemID int64  `json:"item_id" validate:"required,gt=0"`
}

// Purge types

// PurgeResult reports removed items per kind
type PurgeResult struct {
	Brand   string              `json:"brand"`
	Removed map[models.Kind]int `json:"removed"`
	Total   int                 `json:"total"`
}

// PurgeRequest is the validated body of a purge
type PurgeRequest struct {
	Brand string `json:"brand" validate:"required,max=255"`
	Kind  string `json:"kind,omitempty" validate:"omitempty,oneof=car bike"`
}

// Profile types

// ProfileQueryRequest holds the findProfiles bounds as received over the wire
type ProfileQueryRequest struct {
	MinAge     int    `json:"min_age" form:"min_age" validate:"gte=0"`
	MaxBalance string `json:"max_balance" form:"max_balance" validate:"required,numeric"`
}

// PasswordUpdateRequest is the validated body of a password change
type PasswordUpdateRequest struct {
	Password string `json:"password" validate:"required,min=1,max=128"`
}

// Inventory types

// CarOverview is the power figure of a car depreciated to the reference year
type CarOverview struct {
	CarID         int64  `json:"car_id"`
	Name          string `json:"name"`
	Year          int    `json:"year"`
	Power         int    `json:"power"`
	OverviewPower int    `json:"overview_power"`
	ReferenceYear int    `json:"reference_year"`
}

// Export types

// ExportRequest is the validated body of an export
type ExportRequest struct {
	Kind string `json:"kind" validate:"required,oneof=profile frame car bike profiles frames cars bikes"`
	Path string `json:"path" validate:"required,max=4096"`
}

// Archive types

// Archive is the serialised form of the item mirrors
type Archive struct {
	CreatedAt time.Time      `json:"created_at"`
	Cars      []*models.Car  `json:"cars"`
	Bikes     []*models.Bike `json:"bikes"`
}

// ArchiveInfo describes a saved archive
type ArchiveInfo struct {
	Key   string `json:"key"`
	Cars  int    `json:"cars"`
	Bikes int    `json:"bikes"`
	Size  int64  `json:"size"`
}

// ArchiveRequest is the validated body of an archive save
type ArchiveRequest struct {
	Key string `json:"key" validate:"omitempty,max=512"`
}
