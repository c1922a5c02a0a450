package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/config"
	"market-ledger/internal/repositories"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Port:        "8081",
		Log:         config.LogConfig{Level: "warn", Format: "text"},
		Database: config.DatabaseConfig{
			Driver:        repositories.DriverCGO,
			Path:          filepath.Join(t.TempDir(), "ledger.db"),
			MaxOpenConns:  4,
			MaxIdleConns:  2,
			BusyTimeoutMS: 1000,
			AutoMigrate:   true,
		},
		Lock:      config.LockConfig{Timeout: time.Second, PollInterval: 10 * time.Millisecond},
		Storage:   storage.StorageConfig{Type: "mock"},
		JWT:       config.JWTConfig{Secret: "test", ExpiryHours: 1},
		Admin:     config.AdminConfig{Username: "admin"},
		RateLimit: config.RateLimitConfig{RPS: 10, Burst: 20},
	}
}

// TestNewContainer verifies that the container can be created successfully
func TestNewContainer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	container, err := NewContainer(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}

	if err := container.Services.Validate(); err != nil {
		t.Errorf("Services not initialised: %v", err)
	}
	if container.Auth == nil {
		t.Error("Auth service is nil")
	}
	if sizes := container.Services.Mirrors.Sizes(); sizes["profile"] != 0 {
		t.Errorf("Expected empty mirrors on a fresh store, got %v", sizes)
	}

	w := httptest.NewRecorder()
	container.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected healthy router, got %d", w.Code)
	}

	if err := container.Close(); err != nil {
		t.Errorf("Failed to close container: %v", err)
	}
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "postgres"

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Error("Expected error for an unsupported driver")
	}
	if _, err := NewContainer(context.Background(), nil); err == nil {
		t.Error("Expected error for a nil config")
	}
}
