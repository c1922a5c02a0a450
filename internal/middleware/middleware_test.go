package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestAuth(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() failed: %v", err)
	}
	return NewAuthService(&AuthConfig{
		JWTSecret:         "test-secret",
		TokenDuration:     time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
	})
}

func TestTokenRoundTrip(t *testing.T) {
	auth := newTestAuth(t)

	token, err := auth.GenerateToken(Principal{ProfileID: 7, Username: "anna", Roles: []string{string(RoleTrader)}})
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() failed: %v", err)
	}
	if claims.ProfileID != 7 || claims.Username != "anna" || claims.Subject != "7" {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	other := NewAuthService(&AuthConfig{JWTSecret: "other-secret"})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}
}

func TestCheckAdmin(t *testing.T) {
	auth := newTestAuth(t)

	if err := auth.CheckAdmin("admin", "letmein"); err != nil {
		t.Errorf("Expected valid admin credential, got %v", err)
	}
	if err := auth.CheckAdmin("admin", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("Expected invalid credentials, got %v", err)
	}
	if err := NewAuthService(&AuthConfig{AdminUsername: "admin"}).CheckAdmin("admin", ""); err != ErrInvalidCredentials {
		t.Errorf("Expected admin login disabled without a hash, got %v", err)
	}
}

func TestAuthenticationAndAuthorization(t *testing.T) {
	auth := newTestAuth(t)

	router := gin.New()
	router.Use(RequestID())
	router.GET("/admin", Authentication(auth), Authorization(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	trader, _ := auth.GenerateToken(Principal{ProfileID: 1, Username: "anna", Roles: []string{string(RoleTrader)}})
	admin, _ := auth.GenerateToken(Principal{Username: "admin", Roles: []string{string(RoleAdmin)}})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + trader, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
			if w.Header().Get("X-Request-ID") == "" {
				t.Error("Expected X-Request-ID header")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	router := gin.New()
	router.Use(RateLimiter(0.001, 2))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = w.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected burst of 2 then 429, got %v", codes)
	}
}

func TestRequestValidation(t *testing.T) {
	router := gin.New()
	router.Use(RequestValidation())
	router.GET("/cars/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := map[string]int{
		"/cars/1":            http.StatusOK,
		"/cars/abc":          http.StatusBadRequest,
		"/cars/0":            http.StatusBadRequest,
		"/cars/1?limit=5000": http.StatusBadRequest,
		"/cars/1?sort=price": http.StatusBadRequest,
	}
	for path, want := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, w.Code)
		}
	}
}
