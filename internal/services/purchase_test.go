package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"market-ledger/internal/models"
)

func TestBuyConservesMoney(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 1000)
	buyer := env.createProfile(t, "buyer", 30, 5000)
	car := env.createCar(t, "Golf", "VW", seller, 3000, true)
	env.rebuild(t)

	before := env.balance(t, seller.ID).Add(env.balance(t, buyer.ID))

	result, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, buyer.ID)
	if err != nil {
		t.Fatalf("Buy() failed: %v", err)
	}
	if result.Outcome != OutcomeSold || result.Outcome.Err() != nil {
		t.Fatalf("Expected sold, got %s", result.Outcome)
	}

	sellerAfter := env.balance(t, seller.ID)
	buyerAfter := env.balance(t, buyer.ID)
	if !sellerAfter.Add(buyerAfter).Equal(before) {
		t.Errorf("Money not conserved: %s + %s != %s", sellerAfter, buyerAfter, before)
	}
	if !buyerAfter.Equal(decimal.NewFromInt(2000)) || !sellerAfter.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("Unexpected balances: buyer %s, seller %s", buyerAfter, sellerAfter)
	}

	stored, err := env.repos.Cars().GetByID(ctx, car.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.OwnerID != buyer.ID || stored.Available {
		t.Errorf("Expected car owned by buyer and unavailable, got owner %d available %v", stored.OwnerID, stored.Available)
	}

	mirrored, _ := env.services.Mirrors.Cars.Get(car.ID)
	if mirrored.OwnerID != buyer.ID || mirrored.Available {
		t.Errorf("Mirror not updated: %+v", mirrored)
	}
	cachedBuyer, _ := env.services.Mirrors.Profiles.Get(buyer.ID)
	if !cachedBuyer.Balance.Equal(buyerAfter) {
		t.Errorf("Mirrored buyer balance %s, expected %s", cachedBuyer.Balance, buyerAfter)
	}

	live := result.Item.Base()
	if live.OwnerID != buyer.ID || live.Available || live.Owner == nil || live.Owner.ID != buyer.ID {
		t.Errorf("Returned item should reflect the new owner: %+v", live)
	}

	env.publisher.wait(t)
	env.publisher.mu.Lock()
	if len(env.publisher.sold) != 1 || env.publisher.sold[0].ID != result.Sale.ID {
		t.Errorf("Expected one item.sold event for %s", result.Sale.ID)
	}
	env.publisher.mu.Unlock()

	history, err := env.services.Sales.List(ctx, models.KindCar, car.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("Expected one retained sale, got %d (%v)", len(history), err)
	}
	if history[0].SellerID != seller.ID || history[0].BuyerID != buyer.ID {
		t.Errorf("Unexpected sale record: %+v", history[0])
	}
}

func TestBuyAlreadySoldLeavesStateUnchanged(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 1000)
	buyer := env.createProfile(t, "buyer", 30, 5000)
	car := env.createCar(t, "Golf", "VW", seller, 3000, false)

	result, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, buyer.ID)
	if err != nil {
		t.Fatalf("Buy() failed: %v", err)
	}
	if result.Outcome != OutcomeAlreadySold || !errors.Is(result.Outcome.Err(), ErrAlreadySold) {
		t.Fatalf("Expected already_sold, got %s", result.Outcome)
	}
	if result.Sale != nil {
		t.Error("Expected no sale for a rejected purchase")
	}

	stored, _ := env.repos.Cars().GetByID(ctx, car.ID)
	if stored.OwnerID != seller.ID || !stored.Price.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Item changed: %+v", stored)
	}
	if !env.balance(t, seller.ID).Equal(decimal.NewFromInt(1000)) || !env.balance(t, buyer.ID).Equal(decimal.NewFromInt(5000)) {
		t.Error("Balances changed after rejected purchase")
	}
}

func TestBuyInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 1000)
	buyer := env.createProfile(t, "buyer", 30, 2999)
	car := env.createCar(t, "Golf", "VW", seller, 3000, true)

	result, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, buyer.ID)
	if err != nil {
		t.Fatalf("Buy() failed: %v", err)
	}
	if result.Outcome != OutcomeInsufficientFunds {
		t.Fatalf("Expected insufficient_funds, got %s", result.Outcome)
	}

	stored, _ := env.repos.Cars().GetByID(ctx, car.ID)
	if stored.OwnerID != seller.ID || !stored.Available {
		t.Errorf("Item changed: %+v", stored)
	}
	if !env.balance(t, buyer.ID).Equal(decimal.NewFromInt(2999)) {
		t.Error("Buyer balance changed after rejected purchase")
	}
	sales, _ := env.services.Sales.ListAll(ctx, repositoriesAll)
	if len(sales) != 0 {
		t.Errorf("Expected no sales, got %d", len(sales))
	}
}

func TestBuySnapshotIsIsolated(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 1000)
	buyer := env.createProfile(t, "buyer", 30, 5000)
	bike := env.createBike(t, "Rockhopper", "Specialized", seller, 900)
	env.rebuild(t)

	result, err := env.services.Purchases.Buy(ctx, models.KindBike, bike.ID, buyer.ID)
	if err != nil || result.Outcome != OutcomeSold {
		t.Fatalf("Buy() = %+v, %v", result, err)
	}

	snapshot := result.Sale.Snapshot.Base()
	if !snapshot.Available || snapshot.OwnerID != seller.ID {
		t.Fatalf("Snapshot should hold the pre-sale state: %+v", snapshot)
	}
	if snapshot.Owner == nil || !snapshot.Owner.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("Snapshot should carry the seller's pre-sale fields: %+v", snapshot.Owner)
	}

	live := result.Item.Base()
	live.Name = "Renamed"
	live.Price = decimal.NewFromInt(1)
	live.Owner.Balance = decimal.NewFromInt(0)

	if snapshot.Name != "Rockhopper" || !snapshot.Price.Equal(decimal.NewFromInt(900)) {
		t.Errorf("Snapshot changed with the live item: %+v", snapshot)
	}
	if !snapshot.Owner.Balance.Equal(decimal.NewFromInt(1000)) || snapshot.Owner.ID != seller.ID {
		t.Errorf("Snapshot owner changed with the live item: %+v", snapshot.Owner)
	}

	history, err := env.services.Sales.List(ctx, models.KindBike, bike.ID)
	if err != nil || len(history) != 1 {
		t.Fatalf("Expected one retained sale, got %d (%v)", len(history), err)
	}
	stored := history[0].Snapshot.Base()
	if stored.Name != "Rockhopper" || !stored.Available || stored.OwnerID != seller.ID {
		t.Errorf("Retained snapshot does not match the pre-sale state: %+v", stored)
	}
}

func TestConcurrentBuysSellOnce(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 0)
	car := env.createCar(t, "Golf", "VW", seller, 100, true)
	buyers := []*models.Profile{
		env.createProfile(t, "first", 30, 1000),
		env.createProfile(t, "second", 30, 1000),
	}
	env.rebuild(t)

	outcomes := make([]PurchaseOutcome, len(buyers))
	var wg sync.WaitGroup
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, buyerID int64) {
			defer wg.Done()
			result, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, buyerID)
			if err != nil {
				t.Errorf("Buy() failed: %v", err)
				return
			}
			outcomes[i] = result.Outcome
		}(i, b.ID)
	}
	wg.Wait()

	sold, rejected := 0, 0
	for _, o := range outcomes {
		switch o {
		case OutcomeSold:
			sold++
		case OutcomeAlreadySold:
			rejected++
		}
	}
	if sold != 1 || rejected != 1 {
		t.Fatalf("Expected one sale and one already_sold, got %v", outcomes)
	}

	total := env.balance(t, seller.ID)
	for _, b := range buyers {
		total = total.Add(env.balance(t, b.ID))
	}
	if !total.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Money not conserved: total %s", total)
	}
	if !env.balance(t, seller.ID).Equal(decimal.NewFromInt(100)) {
		t.Errorf("Seller credited more than once: %s", env.balance(t, seller.ID))
	}
}

func TestBuyFromSelfIsNetZero(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	owner := env.createProfile(t, "owner", 30, 500)
	car := env.createCar(t, "Golf", "VW", owner, 300, true)

	result, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, owner.ID)
	if err != nil || result.Outcome != OutcomeSold {
		t.Fatalf("Buy() = %+v, %v", result, err)
	}
	if !env.balance(t, owner.ID).Equal(decimal.NewFromInt(500)) {
		t.Errorf("Expected unchanged balance, got %s", env.balance(t, owner.ID))
	}
}

func TestBuyErrors(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	seller := env.createProfile(t, "seller", 30, 1000)
	car := env.createCar(t, "Golf", "VW", seller, 100, true)

	if _, err := env.services.Purchases.Buy(ctx, models.KindCar, 999, seller.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for a missing item, got %v", err)
	}
	if _, err := env.services.Purchases.Buy(ctx, models.KindCar, car.ID, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for a missing buyer, got %v", err)
	}
	if _, err := env.services.Purchases.Buy(ctx, models.KindProfile, car.ID, seller.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected validation error for a non-item kind, got %v", err)
	}
}
