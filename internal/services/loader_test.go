package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"market-ledger/internal/filelock"
	"market-ledger/internal/models"
)

const twoProfiles = `anna
pw1
Anna
Nowak
25
1200.5
bob
pw2
Bob
Kowal
40
300
`

const badSecondProfile = `anna
pw1
Anna
Nowak
25
1200.50
bob
pw2
Bob
Kowal
forty
300
`

func TestLoadProfiles(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	path := env.writeFile(t, "profiles.txt", twoProfiles)

	ok, err := env.services.Loader.LoadProfiles(ctx, path)
	if err != nil || !ok {
		t.Fatalf("LoadProfiles() = %v, %v", ok, err)
	}

	mirrored := env.services.Mirrors.Profiles.List()
	if len(mirrored) != 2 {
		t.Fatalf("Expected mirror size 2, got %d", len(mirrored))
	}
	if mirrored[0].Nick != "anna" || mirrored[1].Nick != "bob" {
		t.Errorf("Expected file order anna, bob; got %s, %s", mirrored[0].Nick, mirrored[1].Nick)
	}

	stored, err := env.repos.Profiles().List(ctx, repositoriesAll)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("Expected 2 stored rows, got %d", len(stored))
	}
	for i, p := range stored {
		m := mirrored[i]
		if p.ID != m.ID || p.Nick != m.Nick || p.Age != m.Age || !p.Balance.Equal(m.Balance) {
			t.Errorf("Stored row %d %+v does not match mirror %+v", i, p, m)
		}
	}
}

func TestLoadStopsAtInvalidRecord(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	path := env.writeFile(t, "profiles.txt", badSecondProfile)

	ok, err := env.services.Loader.LoadProfiles(ctx, path)
	if err != nil || !ok {
		t.Fatalf("Expected partial success, got %v, %v", ok, err)
	}
	if n := env.services.Mirrors.Profiles.Len(); n != 1 {
		t.Errorf("Expected mirror size 1, got %d", n)
	}
	count, err := env.repos.Profiles().Count(ctx)
	if err != nil || count != 1 {
		t.Errorf("Expected 1 stored row, got %d (%v)", count, err)
	}

	result, err := env.services.Loader.Load(ctx, models.KindProfile, env.writeFile(t, "again.txt", badSecondProfile))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	// anna is now a duplicate, so the second file stops at its first record
	if result.Complete || result.Loaded != 0 || result.Reason == "" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestLoadMissingFile(t *testing.T) {
	env := setupServices(t)

	ok, err := env.services.Loader.LoadCars(context.Background(), filepath.Join(env.dir, "nope"))
	if err != nil || ok {
		t.Errorf("Expected false, nil for a missing file, got %v, %v", ok, err)
	}
	if env.services.Mirrors.Cars.Len() != 0 {
		t.Error("Expected no cars to be mirrored")
	}
}

func TestLoadFallsBackToTxtSuffix(t *testing.T) {
	env := setupServices(t)
	env.writeFile(t, "profiles.txt", twoProfiles)

	result, err := env.services.Loader.Load(context.Background(), models.KindProfile, filepath.Join(env.dir, "profiles"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !result.Found || !result.Complete || result.Loaded != 2 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if filepath.Base(result.Path) != "profiles.txt" {
		t.Errorf("Expected resolved path profiles.txt, got %s", result.Path)
	}
}

func TestLoadAllResolvesReferences(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	plan := LoadPlan{
		Profiles: env.writeFile(t, "profiles.txt", twoProfiles),
		Frames:   env.writeFile(t, "frames.txt", "21,steel\n\n7,carbon\n"),
		Cars: env.writeFile(t, "cars.txt", `Golf
VW
0
15000
1200
1
1
2015
150
5
manual
DE
`),
		Bikes: env.writeFile(t, "bikes.txt", `Rockhopper
Specialized
1
900.99
13.5
2
1
21
2
1
0
1
`),
	}

	results, err := env.services.Loader.LoadAll(ctx, plan)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Complete {
			t.Errorf("Expected %s load to complete: %+v", r.Kind, r)
		}
	}

	sizes := env.services.Mirrors.Sizes()
	if sizes[models.KindProfile] != 2 || sizes[models.KindFrame] != 2 || sizes[models.KindCar] != 1 || sizes[models.KindBike] != 1 {
		t.Errorf("Unexpected mirror sizes: %v", sizes)
	}

	bikes := env.services.Inventory.ListBikes(ctx)
	if bikes[0].Owner == nil || bikes[0].Owner.Nick != "bob" {
		t.Errorf("Expected bike owned by bob, got %+v", bikes[0].Owner)
	}
	if bikes[0].Frame == nil || bikes[0].Frame.Material != models.MaterialCarbon {
		t.Errorf("Expected carbon frame, got %+v", bikes[0].Frame)
	}
}

func TestLoadRejectsBlankBrand(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	path := env.writeFile(t, "cars.txt", `Golf

0
15000
1200
1
1
2015
150
5
manual
DE
`)

	result, err := env.services.Loader.Load(ctx, models.KindCar, path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.Complete || result.Loaded != 0 || result.Reason == "" {
		t.Errorf("Expected the blank brand to stop the load, got %+v", result)
	}
	if n := env.services.Mirrors.Cars.Len(); n != 0 {
		t.Errorf("Expected empty car mirror, got %d", n)
	}
}

func TestLoadStopsAtUnknownReference(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	path := env.writeFile(t, "cars.txt", `Golf
VW
0
15000
1200
99
1
2015
150
5
manual
DE
`)

	ok, err := env.services.Loader.LoadCars(ctx, path)
	if err != nil || !ok {
		t.Fatalf("Expected partial success, got %v, %v", ok, err)
	}
	if count, _ := env.repos.Cars().Count(ctx); count != 0 {
		t.Errorf("Expected no stored cars, got %d", count)
	}
}

func TestLoadTimesOutOnExclusiveLock(t *testing.T) {
	env := setupServices(t)
	path := env.writeFile(t, "profiles.txt", twoProfiles)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("Failed to open file: %v", err)
	}
	defer f.Close()

	held, err := filelock.Acquire(context.Background(), f, filelock.Exclusive, testLockOptions)
	if err != nil {
		t.Fatalf("Acquire() failed: %v", err)
	}
	defer held.Release()

	_, err = env.services.Loader.LoadProfiles(context.Background(), path)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("Expected lock timeout, got %v", err)
	}
	if env.services.Mirrors.Profiles.Len() != 0 {
		t.Error("Expected no state change after lock timeout")
	}
}

func TestLoadInterruptedByContext(t *testing.T) {
	env := setupServices(t)
	path := env.writeFile(t, "profiles.txt", twoProfiles)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.services.Loader.Load(ctx, models.KindProfile, path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if result.Complete || result.Loaded != 0 {
		t.Errorf("Expected interrupted load, got %+v", result)
	}
}

func TestRebuildWaitsForTrackedWrite(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	mirrors := env.services.Mirrors

	entered := make(chan struct{})
	release := make(chan struct{})
	tracked := make(chan error, 1)
	go func() {
		tracked <- mirrors.Track(func() error {
			close(entered)
			<-release
			p, err := models.NewProfile("late", "pw", "Late", "Writer", 30, decimal.NewFromInt(10))
			if err != nil {
				return err
			}
			if err := env.repos.Profiles().Create(ctx, p); err != nil {
				return err
			}
			mirrors.Profiles.Append(p)
			return nil
		})
	}()
	<-entered

	rebuilt := make(chan error, 1)
	go func() { rebuilt <- mirrors.Rebuild(ctx) }()

	select {
	case <-rebuilt:
		t.Fatal("Rebuild finished while a tracked write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-tracked; err != nil {
		t.Fatalf("Track() failed: %v", err)
	}
	if err := <-rebuilt; err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
	if n := mirrors.Profiles.Len(); n != 1 {
		t.Errorf("Expected the committed profile to survive the rebuild, got %d profiles", n)
	}
}
