package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/database"
	"market-ledger/internal/filelock"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
	"market-ledger/internal/repositories/sqlite"
)

var (
	testLockOptions = filelock.Options{Timeout: 200 * time.Millisecond, PollInterval: 10 * time.Millisecond}
	repositoriesAll = repositories.ListOptions{}
)

type recordingPublisher struct {
	mu     sync.Mutex
	sold   []*models.Sale
	purged []string
	done   chan struct{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{done: make(chan struct{}, 16)}
}

func (p *recordingPublisher) PublishItemSold(ctx context.Context, sale *models.Sale) error {
	p.mu.Lock()
	p.sold = append(p.sold, sale)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingPublisher) PublishBrandPurged(ctx context.Context, brand string, removed map[models.Kind]int) error {
	p.mu.Lock()
	p.purged = append(p.purged, brand)
	p.mu.Unlock()
	p.done <- struct{}{}
	return nil
}

func (p *recordingPublisher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
	}
}

type testEnv struct {
	repos     repositories.RepositoryManager
	services  *ServiceContainer
	publisher *recordingPublisher
	storage   *storage.MockFileStorage
	dir       string
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	dir := t.TempDir()
	config := repositories.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "ledger.db")

	manager := database.NewManager(config, logger)
	if err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	repos := sqlite.NewSQLiteRepositoryManager(manager.GetDB(), logger)
	publisher := newRecordingPublisher()
	mock := storage.NewMockFileStorage()

	container, err := NewServiceContainer(repos, &ServiceConfig{
		LockOptions: testLockOptions,
		Storage:     mock,
		Publisher:   publisher,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewServiceContainer() failed: %v", err)
	}
	if err := container.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}

	return &testEnv{repos: repos, services: container, publisher: publisher, storage: mock, dir: dir}
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func (e *testEnv) createProfile(t *testing.T, nick string, age int, balance int64) *models.Profile {
	t.Helper()
	p, err := models.NewProfile(nick, "pw-"+nick, strings.ToUpper(nick[:1])+nick[1:], "Tester", age, decimal.NewFromInt(balance))
	if err != nil {
		t.Fatalf("NewProfile() failed: %v", err)
	}
	if err := e.repos.Profiles().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return p
}

func (e *testEnv) createCar(t *testing.T, name, brand string, owner *models.Profile, price int64, available bool) *models.Car {
	t.Helper()
	listing := models.NewListing(name, brand, false, decimal.NewFromInt(price), decimal.NewFromInt(1200), owner.Ref(), available)
	car, err := models.NewCar(listing, 2015, 180, 5, "manual", "DE")
	if err != nil {
		t.Fatalf("NewCar() failed: %v", err)
	}
	if err := e.repos.Cars().Create(context.Background(), car); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return car
}

func (e *testEnv) createBike(t *testing.T, name, brand string, owner *models.Profile, price int64) *models.Bike {
	t.Helper()
	ctx := context.Background()
	frame, err := models.NewFrame(21, models.MaterialSteel)
	if err != nil {
		t.Fatalf("NewFrame() failed: %v", err)
	}
	if err := e.repos.Frames().Create(ctx, frame); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	listing := models.NewListing(name, brand, false, decimal.NewFromInt(price), decimal.NewFromInt(12), owner.Ref(), true)
	bike, err := models.NewBike(listing, 21, frame.Ref(), true, true, true)
	if err != nil {
		t.Fatalf("NewBike() failed: %v", err)
	}
	if err := e.repos.Bikes().Create(ctx, bike); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return bike
}

func (e *testEnv) rebuild(t *testing.T) {
	t.Helper()
	if err := e.services.Mirrors.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
}

func (e *testEnv) balance(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	p, err := e.repos.Profiles().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	return p.Balance
}

func TestNewServiceContainerRequiresStorage(t *testing.T) {
	env := setupServices(t)
	if _, err := NewServiceContainer(env.repos, &ServiceConfig{}); err == nil {
		t.Error("Expected error without archive storage")
	}
	if _, err := NewServiceContainer(nil, &ServiceConfig{Storage: env.storage}); err == nil {
		t.Error("Expected error without repositories")
	}
}

func TestValidateRequest(t *testing.T) {
	if err := ValidateRequest(&LoadRequest{Kind: "cars", Path: "cars.txt"}); err != nil {
		t.Errorf("Expected valid request, got %v", err)
	}
	err := ValidateRequest(&LoadRequest{Kind: "boats", Path: "x"})
	if err == nil || !strings.Contains(err.Error(), ErrValidation.Error()) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if err := ValidateRequest(&ProfileQueryRequest{MinAge: 21, MaxBalance: "abc"}); err == nil {
		t.Error("Expected non-numeric max balance to be rejected")
	}
}

func TestUnionIDs(t *testing.T) {
	got := unionIDs([]int64{4, 1}, []int64{1, 3})
	want := []int64{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
}

func TestItemLocksAreReleased(t *testing.T) {
	locks := newItemLocks()
	unlock := locks.lock(models.KindCar, 1)

	acquired := make(chan struct{})
	go func() {
		release := locks.lock(models.KindCar, 1)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("Second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	<-acquired

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Errorf("Expected lock entries to be dropped, got %d", len(locks.locks))
	}
}
