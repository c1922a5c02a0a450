package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"market-ledger/internal/database"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func setupTestDB(t *testing.T) repositories.RepositoryManager {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	config := repositories.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "test.db")

	manager := database.NewManager(config, logger)
	if err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return NewSQLiteRepositoryManager(manager.GetDB(), logger)
}

func createProfile(t *testing.T, repos repositories.RepositoryManager, nick string, age int, balance int64) *models.Profile {
	t.Helper()
	p, err := models.NewProfile(nick, "pw-"+nick, "Name", "Surname", age, decimal.NewFromInt(balance))
	if err != nil {
		t.Fatalf("NewProfile() failed: %v", err)
	}
	if err := repos.Profiles().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return p
}

func createCar(t *testing.T, repos repositories.RepositoryManager, brand string, owner *models.Profile, price int64) *models.Car {
	t.Helper()
	listing := models.NewListing("Model "+brand, brand, false, decimal.NewFromInt(price), decimal.NewFromInt(1000), owner.Ref(), true)
	car, err := models.NewCar(listing, 2012, 150, 5, "manual", "PL")
	if err != nil {
		t.Fatalf("NewCar() failed: %v", err)
	}
	if err := repos.Cars().Create(context.Background(), car); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return car
}

func TestProfileRepository_CreateAndGet(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	p := createProfile(t, repos, "anna", 25, 1200)
	if p.ID == 0 {
		t.Fatal("Expected ID to be assigned")
	}

	got, err := repos.Profiles().GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Nick != "anna" || got.Age != 25 || !got.Balance.Equal(decimal.NewFromInt(1200)) || got.Password != "pw-anna" {
		t.Errorf("Unexpected profile: %+v", got)
	}

	byNick, err := repos.Profiles().GetByNick(ctx, "anna")
	if err != nil || byNick.ID != p.ID {
		t.Errorf("GetByNick() = %v, %v", byNick, err)
	}

	dup, _ := models.NewProfile("anna", "x", "", "", 30, decimal.Zero)
	if err := repos.Profiles().Create(ctx, dup); !repositories.IsDuplicate(err) {
		t.Errorf("Expected duplicate error, got %v", err)
	}

	if _, err := repos.Profiles().GetByID(ctx, 999); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestProfileRepository_Reference(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	p := createProfile(t, repos, "ref", 30, 10)

	ref, err := repos.Profiles().Reference(ctx, p.ID)
	if err != nil || ref.ID != p.ID {
		t.Errorf("Reference() = %v, %v", ref, err)
	}
	if _, err := repos.Profiles().Reference(ctx, p.ID+100); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found for missing reference, got %v", err)
	}
	if _, err := repos.Frames().Reference(ctx, 0); !errors.Is(err, repositories.ErrInvalidID) {
		t.Errorf("Expected invalid id, got %v", err)
	}
}

func TestProfileRepository_FindProfiles(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	createProfile(t, repos, "old-poor", 40, 100)
	createProfile(t, repos, "young", 21, 100)
	createProfile(t, repos, "rich", 30, 5000)
	createProfile(t, repos, "match", 22, 4999)
	createProfile(t, repos, "teen", 15, 10)

	found, err := repos.Profiles().FindProfiles(ctx, repositories.ProfileQuery{MinAge: 21, MaxBalance: decimal.NewFromInt(5000)})
	if err != nil {
		t.Fatalf("FindProfiles() failed: %v", err)
	}

	var nicks []string
	for _, p := range found {
		nicks = append(nicks, p.Nick)
	}
	if len(nicks) != 2 || nicks[0] != "old-poor" || nicks[1] != "match" {
		t.Errorf("Expected [old-poor match] in store order, got %v", nicks)
	}
}

func TestProfileRepository_FindProfilesExactBalance(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	below := createProfile(t, repos, "below", 30, 0)
	at := createProfile(t, repos, "at", 30, 0)
	if err := repos.Profiles().UpdateBalance(ctx, below.ID, decimal.RequireFromString("4999.99999999999999999")); err != nil {
		t.Fatalf("UpdateBalance() failed: %v", err)
	}
	if err := repos.Profiles().UpdateBalance(ctx, at.ID, decimal.RequireFromString("5000.00000000000000000")); err != nil {
		t.Fatalf("UpdateBalance() failed: %v", err)
	}

	found, err := repos.Profiles().FindProfiles(ctx, repositories.ProfileQuery{MinAge: 21, MaxBalance: decimal.NewFromInt(5000)})
	if err != nil {
		t.Fatalf("FindProfiles() failed: %v", err)
	}
	if len(found) != 1 || found[0].Nick != "below" {
		t.Errorf("Expected only the profile just below the bound, got %d profiles", len(found))
	}
}

func TestProfileRepository_UpdatePasswordAndBalance(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	p := createProfile(t, repos, "pw", 30, 10)

	if err := repos.Profiles().UpdatePassword(ctx, p.ID, "new-secret"); err != nil {
		t.Fatalf("UpdatePassword() failed: %v", err)
	}
	if err := repos.Profiles().UpdateBalance(ctx, p.ID, decimal.RequireFromString("12.34")); err != nil {
		t.Fatalf("UpdateBalance() failed: %v", err)
	}
	got, _ := repos.Profiles().GetByID(ctx, p.ID)
	if got.Password != "new-secret" || !got.Balance.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("Unexpected profile after update: %+v", got)
	}

	if err := repos.Profiles().UpdatePassword(ctx, 999, "x"); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
	if err := repos.Profiles().UpdateBalance(ctx, p.ID, decimal.NewFromInt(-1)); !repositories.IsValidation(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestItemRepositories_ForeignKeys(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	listing := models.NewListing("Ghost", "None", false, decimal.NewFromInt(1), decimal.NewFromInt(1), models.ProfileRef{ID: 42}, true)
	car, _ := models.NewCar(listing, 2000, 1, 1, "a", "b")
	if err := repos.Cars().Create(ctx, car); !repositories.IsConstraint(err) {
		t.Errorf("Expected constraint error for unknown owner, got %v", err)
	}

	owner := createProfile(t, repos, "owner", 30, 10)
	frame, _ := models.NewFrame(7, models.MaterialSteel)
	if err := repos.Frames().Create(ctx, frame); err != nil {
		t.Fatalf("Frame Create() failed: %v", err)
	}

	bikeListing := models.NewListing("City", "Kross", true, decimal.NewFromInt(100), decimal.NewFromInt(12), owner.Ref(), true)
	bike, _ := models.NewBike(bikeListing, 21, frame.Ref(), true, false, true)
	if err := repos.Bikes().Create(ctx, bike); err != nil {
		t.Fatalf("Bike Create() failed: %v", err)
	}

	got, err := repos.Bikes().GetByID(ctx, bike.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.FrameID != frame.ID || !got.Auction || !got.Lights || got.Bell || !got.Brakes || !got.Available {
		t.Errorf("Unexpected bike: %+v", got)
	}
}

func TestItemRepository_ListIDsByBrandIsCaseSensitive(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	owner := createProfile(t, repos, "owner", 30, 10)

	a := createCar(t, repos, "Fiat", owner, 10)
	createCar(t, repos, "fiat", owner, 10)
	b := createCar(t, repos, "Fiat", owner, 10)

	ids, err := repos.Cars().ListIDsByBrand(ctx, "Fiat")
	if err != nil {
		t.Fatalf("ListIDsByBrand() failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != b.ID {
		t.Errorf("Expected [%d %d], got %v", a.ID, b.ID, ids)
	}

	if err := repos.Cars().Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := repos.Cars().Delete(ctx, a.ID); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found on second delete, got %v", err)
	}
	if count, _ := repos.Cars().Count(ctx); count != 2 {
		t.Errorf("Expected 2 cars left, got %d", count)
	}
}

func TestItemRepository_TransferOwnership(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	seller := createProfile(t, repos, "seller", 30, 10)
	buyer := createProfile(t, repos, "buyer", 30, 1000)
	car := createCar(t, repos, "VW", seller, 500)

	if err := repos.Cars().TransferOwnership(ctx, car.ID, buyer.ID); err != nil {
		t.Fatalf("TransferOwnership() failed: %v", err)
	}
	got, _ := repos.Cars().GetByID(ctx, car.ID)
	if got.OwnerID != buyer.ID || got.Available {
		t.Errorf("Expected car owned by buyer and unavailable, got %+v", got)
	}

	if err := repos.Cars().TransferOwnership(ctx, car.ID, seller.ID); !repositories.IsConcurrency(err) {
		t.Errorf("Expected concurrency conflict on sold car, got %v", err)
	}
	if err := repos.Cars().TransferOwnership(ctx, 999, buyer.ID); !repositories.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestTransactionManager_RollbackAndCommit(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repos.WithTransaction(ctx, func(txCtx context.Context) error {
		p, _ := models.NewProfile("rolled", "pw", "", "", 20, decimal.Zero)
		if err := repos.Profiles().Create(txCtx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}
	if count, _ := repos.Profiles().Count(ctx); count != 0 {
		t.Errorf("Expected rollback to discard the profile, count = %d", count)
	}

	err = repos.WithTransaction(ctx, func(txCtx context.Context) error {
		p, _ := models.NewProfile("kept", "pw", "", "", 20, decimal.Zero)
		return repos.Profiles().Create(txCtx, p)
	})
	if err != nil {
		t.Fatalf("WithTransaction() failed: %v", err)
	}
	if count, _ := repos.Profiles().Count(ctx); count != 1 {
		t.Errorf("Expected committed profile, count = %d", count)
	}
}

func TestSaleRepository_SnapshotRoundTrip(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	seller := createProfile(t, repos, "seller", 30, 10)
	buyer := createProfile(t, repos, "buyer", 30, 1000)
	car := createCar(t, repos, "VW", seller, 500)
	car.Owner = seller

	sale := models.NewSale(car.Clone(), buyer.ID)
	if err := repos.Sales().Create(ctx, sale); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	sales, err := repos.Sales().ListByItem(ctx, models.KindCar, car.ID)
	if err != nil {
		t.Fatalf("ListByItem() failed: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("Expected 1 sale, got %d", len(sales))
	}
	got := sales[0]
	snap, ok := got.Snapshot.(*models.Car)
	if !ok {
		t.Fatalf("Expected car snapshot, got %T", got.Snapshot)
	}
	if got.SellerID != seller.ID || got.BuyerID != buyer.ID || !got.Price.Equal(decimal.NewFromInt(500)) {
		t.Errorf("Unexpected sale: %+v", got)
	}
	if snap.Owner == nil || snap.Owner.Nick != "seller" || !snap.Available {
		t.Errorf("Snapshot lost pre-sale state: %+v", snap)
	}
}

func TestConcurrentTransfersSucceedOnce(t *testing.T) {
	repos := setupTestDB(t)
	ctx := context.Background()
	seller := createProfile(t, repos, "seller", 30, 10)
	buyer := createProfile(t, repos, "buyer", 30, 1000)
	car := createCar(t, repos, "VW", seller, 500)

	var wg sync.WaitGroup
	results := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- repos.WithTransaction(ctx, func(txCtx context.Context) error {
				return repos.Cars().TransferOwnership(txCtx, car.ID, buyer.ID)
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !repositories.IsConcurrency(err) {
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("Expected exactly one transfer to succeed, got %d", succeeded)
	}
}
