package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/database"
	"market-ledger/internal/filelock"
	"market-ledger/internal/middleware"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
	"market-ledger/internal/repositories/sqlite"
	"market-ledger/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	repos    repositories.RepositoryManager
	services *services.ServiceContainer
	auth     *middleware.AuthService
	dir      string
}

func setupServer(t *testing.T) *testServer {
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
	container, err := services.NewServiceContainer(repos, &services.ServiceConfig{
		LockOptions: filelock.Options{Timeout: 200 * time.Millisecond, PollInterval: 10 * time.Millisecond},
		Storage:     storage.NewMockFileStorage(),
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewServiceContainer() failed: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() failed: %v", err)
	}
	auth := middleware.NewAuthService(&middleware.AuthConfig{
		JWTSecret:         "test-secret",
		TokenDuration:     time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	})

	router := NewRouter(&RouterConfig{
		Services:    container,
		AuthService: auth,
		Logger:      logger,
		HealthCheck: manager.CheckHealth,
	})

	return &testServer{router: router, repos: repos, services: container, auth: auth, dir: dir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Marshal() failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: username, Password: password})
	if w.Code != http.StatusOK {
		t.Fatalf("Login(%s) returned %d: %s", username, w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	return resp.Token
}

func (s *testServer) createProfile(t *testing.T, nick string, age int, balance int64) *models.Profile {
	t.Helper()
	p, err := models.NewProfile(nick, "pw-"+nick, nick, "Tester", age, decimal.NewFromInt(balance))
	if err != nil {
		t.Fatalf("NewProfile() failed: %v", err)
	}
	if err := s.repos.Profiles().Create(context.Background(), p); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return p
}

func (s *testServer) createCar(t *testing.T, name, brand string, owner *models.Profile, price int64) *models.Car {
	t.Helper()
	listing := models.NewListing(name, brand, false, decimal.NewFromInt(price), decimal.NewFromInt(1200), owner.Ref(), true)
	car, err := models.NewCar(listing, 2010, 320, 5, "manual", "DE")
	if err != nil {
		t.Fatalf("NewCar() failed: %v", err)
	}
	if err := s.repos.Cars().Create(context.Background(), car); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return car
}

func (s *testServer) rebuild(t *testing.T) {
	t.Helper()
	if err := s.services.Mirrors.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() failed: %v", err)
	}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("Unmarshal(%s) failed: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode[map[string]interface{}](t, w)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body["status"])
	}
}

func TestLogin(t *testing.T) {
	s := setupServer(t)
	anna := s.createProfile(t, "anna", 30, 1000)

	w := s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "anna", Password: "pw-anna"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[LoginResponse](t, w)
	if resp.User.ProfileID != anna.ID || len(resp.User.Roles) != 1 || resp.User.Roles[0] != string(middleware.RoleTrader) {
		t.Errorf("Unexpected trader principal: %+v", resp.User)
	}

	admin := decode[LoginResponse](t, s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "admin", Password: "letmein"}))
	if admin.User.ProfileID != 0 || admin.User.Roles[0] != string(middleware.RoleAdmin) {
		t.Errorf("Unexpected admin principal: %+v", admin.User)
	}

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "anna", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for a bad password, got %d", w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "anna"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a missing password, got %d", w.Code)
	}

	me := decode[UserInfo](t, s.do(t, http.MethodGet, "/api/v1/auth/me", resp.Token, nil))
	if me.Username != "anna" {
		t.Errorf("Expected anna, got %+v", me)
	}
}

func TestItemEndpoints(t *testing.T) {
	s := setupServer(t)
	owner := s.createProfile(t, "owner", 50, 0)
	s.createCar(t, "Passat", "VW", owner, 9000)
	golf := s.createCar(t, "Golf", "VW", owner, 8000)
	s.rebuild(t)
	token := s.login(t, "owner", "pw-owner")

	cars := decode[[]models.Car](t, s.do(t, http.MethodGet, "/api/v1/cars?sort=name", token, nil))
	if len(cars) != 2 || cars[0].Name != "Golf" || cars[1].Name != "Passat" {
		t.Errorf("Expected Golf then Passat, got %+v", cars)
	}
	if cars[0].Owner == nil || cars[0].Owner.Nick != "owner" {
		t.Errorf("Expected owner attached to listed car, got %+v", cars[0].Owner)
	}

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/cars/%d", golf.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	overview := decode[services.CarOverview](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/cars/%d/overview", golf.ID), token, nil))
	// 320 hp from 2010: 320 - (2020 - 2010)
	if overview.OverviewPower != 310 {
		t.Errorf("Expected overview power 310, got %d", overview.OverviewPower)
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"missing car", "/api/v1/cars/999", http.StatusNotFound},
		{"malformed id", "/api/v1/cars/abc", http.StatusBadRequest},
		{"bad sort", "/api/v1/cars?sort=price", http.StatusBadRequest},
		{"empty bikes", "/api/v1/bikes", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := s.do(t, http.MethodGet, tt.path, token, nil); w.Code != tt.want {
				t.Errorf("Expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}

	if w := s.do(t, http.MethodGet, "/api/v1/cars", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a token, got %d", w.Code)
	}
}

func TestBuy(t *testing.T) {
	s := setupServer(t)
	seller := s.createProfile(t, "seller", 40, 100)
	buyer := s.createProfile(t, "buyer", 30, 10000)
	s.createProfile(t, "poor", 30, 10)
	car := s.createCar(t, "Golf", "VW", seller, 8000)
	s.rebuild(t)

	buyerToken := s.login(t, "buyer", "pw-buyer")
	poorToken := s.login(t, "poor", "pw-poor")
	adminToken := s.login(t, "admin", "letmein")
	req := services.BuyRequest{Kind: "car", ItemID: car.ID}

	w := s.do(t, http.MethodPost, "/api/v1/purchases", poorToken, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("Expected 409 for insufficient funds, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]interface{}](t, w)["outcome"]; got != string(services.OutcomeInsufficientFunds) {
		t.Errorf("Expected insufficient_funds outcome, got %v", got)
	}

	w = s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[map[string]interface{}](t, w)["outcome"]; got != string(services.OutcomeSold) {
		t.Errorf("Expected sold outcome, got %v", got)
	}

	stored, err := s.repos.Cars().GetByID(context.Background(), car.ID)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if stored.OwnerID != buyer.ID || stored.Available {
		t.Errorf("Expected car owned by buyer and unavailable, got owner %d available %v", stored.OwnerID, stored.Available)
	}

	w = s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, req)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for an already sold car, got %d", w.Code)
	}

	sales := decode[[]map[string]interface{}](t, s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/cars/%d/sales", car.ID), buyerToken, nil))
	if len(sales) != 1 {
		t.Errorf("Expected one retained sale, got %d", len(sales))
	}

	if w := s.do(t, http.MethodPost, "/api/v1/purchases", adminToken, req); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for an administrator, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, services.BuyRequest{Kind: "boat", ItemID: 1}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown kind, got %d", w.Code)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/purchases", buyerToken, services.BuyRequest{Kind: "car", ItemID: 999}); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing car, got %d", w.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	s := setupServer(t)
	anna := s.createProfile(t, "anna", 30, 100)
	bob := s.createProfile(t, "bob", 18, 50)
	s.createProfile(t, "carl", 40, 9000)
	s.rebuild(t)
	token := s.login(t, "anna", "pw-anna")

	found := decode[[]models.Profile](t, s.do(t, http.MethodGet, "/api/v1/profiles/search?min_age=20&max_balance=500", token, nil))
	if len(found) != 1 || found[0].Nick != "anna" {
		t.Errorf("Expected only anna, got %+v", found)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/profiles/search?min_age=20&max_balance=lots", token, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-numeric balance, got %d", w.Code)
	}

	path := fmt.Sprintf("/api/v1/profiles/%d/password", anna.ID)
	if w := s.do(t, http.MethodPut, path, token, services.PasswordUpdateRequest{Password: "fresh"}); w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d: %s", w.Code, w.Body.String())
	}
	s.login(t, "anna", "fresh")

	other := fmt.Sprintf("/api/v1/profiles/%d/password", bob.ID)
	if w := s.do(t, http.MethodPut, other, token, services.PasswordUpdateRequest{Password: "x"}); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 changing another profile, got %d", w.Code)
	}

	admin := s.login(t, "admin", "letmein")
	if w := s.do(t, http.MethodPut, other, admin, services.PasswordUpdateRequest{Password: "reset"}); w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for an administrator, got %d", w.Code)
	}
}

func TestAdminEndpoints(t *testing.T) {
	s := setupServer(t)
	admin := s.login(t, "admin", "letmein")

	profiles := filepath.Join(s.dir, "profiles.txt")
	if err := os.WriteFile(profiles, []byte("anna\npw1\nAnna\nNowak\n25\n1200.5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	result := decode[services.LoadResult](t, s.do(t, http.MethodPost, "/api/v1/admin/load", admin, services.LoadRequest{Kind: "profiles", Path: profiles}))
	if !result.Found || !result.Complete || result.Loaded != 1 {
		t.Errorf("Unexpected load result: %+v", result)
	}

	missing := decode[services.LoadResult](t, s.do(t, http.MethodPost, "/api/v1/admin/load", admin, services.LoadRequest{Kind: "cars", Path: filepath.Join(s.dir, "none")}))
	if missing.Found {
		t.Error("Expected missing file to be reported as not found")
	}

	owner, err := s.repos.Profiles().GetByNick(context.Background(), "anna")
	if err != nil {
		t.Fatalf("GetByNick() failed: %v", err)
	}
	s.createCar(t, "Golf", "VW", owner, 100)
	sizes := decode[map[string]int](t, s.do(t, http.MethodPost, "/api/v1/admin/rebuild", admin, nil))
	if sizes["car"] != 1 || sizes["profile"] != 1 {
		t.Errorf("Unexpected mirror sizes: %v", sizes)
	}

	purged := decode[services.PurgeResult](t, s.do(t, http.MethodPost, "/api/v1/admin/purge", admin, services.PurgeRequest{Brand: "VW"}))
	if purged.Total != 1 {
		t.Errorf("Expected one purged item, got %+v", purged)
	}
	if w := s.do(t, http.MethodPost, "/api/v1/admin/purge", admin, services.PurgeRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty brand, got %d", w.Code)
	}

	out := filepath.Join(s.dir, "export.txt")
	exported := decode[ExportResponse](t, s.do(t, http.MethodPost, "/api/v1/admin/export", admin, services.ExportRequest{Kind: "profiles", Path: out}))
	if exported.Written != 1 {
		t.Errorf("Expected one exported profile, got %+v", exported)
	}

	w := s.do(t, http.MethodPost, "/api/v1/admin/archives", admin, services.ArchiveRequest{Key: "archives/test.json"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w := s.do(t, http.MethodGet, "/api/v1/admin/archives/content?key=archives/test.json", admin, nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 reading the archive, got %d", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/v1/admin/archives/content?key=archives/none.json", admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing archive, got %d", w.Code)
	}

	trader := s.login(t, "anna", "pw1")
	if w := s.do(t, http.MethodPost, "/api/v1/admin/rebuild", trader, nil); w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for a trader, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get car: %w", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: brand", services.ErrValidation), http.StatusBadRequest},
		{services.ErrAlreadySold, http.StatusConflict},
		{services.ErrInsufficientFunds, http.StatusConflict},
		{services.ErrConcurrencyConflict, http.StatusConflict},
		{fmt.Errorf("load: %w", services.ErrLockTimeout), http.StatusLocked},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
