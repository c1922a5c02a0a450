package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserRole represents user roles in the system
type UserRole string

const (
	// RoleAdmin may load, purge, export, archive and rebuild
	RoleAdmin UserRole = "admin"
	// RoleTrader is a profile that may buy items
	RoleTrader UserRole = "trader"
)

// Context keys set by Authentication
const (
	ContextPrincipal = "principal"
	ContextUserID    = "user_id"
)

// ErrInvalidCredentials is returned by admin login on a bad username or password
var ErrInvalidCredentials = errors.New("invalid credentials")

// Claims represents JWT claims. ProfileID is zero for administrators.
type Claims struct {
	ProfileID int64    `json:"profile_id,omitempty"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller
type Principal struct {
	ProfileID int64
	Username  string
	Roles     []string
}

// HasRole reports whether the principal carries role
func (p *Principal) HasRole(role UserRole) bool {
	for _, r := range p.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret         string
	TokenDuration     time.Duration
	Issuer            string
	AdminUsername     string
	AdminPasswordHash string
}

// AuthService issues and validates tokens
type AuthService struct {
	config *AuthConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(config *AuthConfig) *AuthService {
	if config.TokenDuration == 0 {
		config.TokenDuration = 24 * time.Hour
	}
	if config.Issuer == "" {
		config.Issuer = "market-ledger"
	}
	return &AuthService{config: config}
}

// GenerateToken signs an HS256 token for the principal
func (a *AuthService) GenerateToken(p Principal) (string, error) {
	subject := p.Username
	if p.ProfileID != 0 {
		subject = strconv.FormatInt(p.ProfileID, 10)
	}
	now := time.Now()
	claims := &Claims{
		ProfileID: p.ProfileID,
		Username:  p.Username,
		Roles:     p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    a.config.Issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(a.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func (a *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.config.JWTSecret), nil
	}, jwt.WithIssuer(a.config.Issuer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// TokenDuration returns the lifetime of issued tokens
func (a *AuthService) TokenDuration() time.Duration {
	return a.config.TokenDuration
}

// CheckAdmin verifies the administrator credential against the configured
// bcrypt hash. Without a configured hash admin login is disabled.
func (a *AuthService) CheckAdmin(username, password string) error {
	if a.config.AdminPasswordHash == "" || username != a.config.AdminUsername {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.config.AdminPasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Authentication middleware that validates bearer tokens
func Authentication(authService *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "Unauthorized", "Authorization header is required")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			abort(c, http.StatusUnauthorized, "Unauthorized", "Invalid authorization header format. Expected: Bearer <token>")
			return
		}

		claims, err := authService.ValidateToken(tokenParts[1])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"error":      err.Error(),
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("Token validation failed")
			abort(c, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		}

		principal := &Principal{ProfileID: claims.ProfileID, Username: claims.Username, Roles: claims.Roles}
		c.Set(ContextPrincipal, principal)
		c.Set(ContextUserID, claims.Subject)
		c.Next()
	}
}

// Authorization middleware that requires any of the given roles
func Authorization(requiredRoles ...UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(requiredRoles) == 0 {
			c.Next()
			return
		}

		principal, ok := GetPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "Unauthorized", "Authentication required")
			return
		}

		for _, role := range requiredRoles {
			if principal.HasRole(role) {
				c.Next()
				return
			}
		}

		logrus.WithFields(logrus.Fields{
			"user_id":        c.GetString(ContextUserID),
			"user_roles":     principal.Roles,
			"required_roles": requiredRoles,
			"path":           c.Request.URL.Path,
		}).Warn("Authorization failed - insufficient permissions")
		abort(c, http.StatusForbidden, "Forbidden", "Insufficient permissions")
	}
}

// GetPrincipal returns the authenticated caller
func GetPrincipal(c *gin.Context) (*Principal, bool) {
	v, exists := c.Get(ContextPrincipal)
	if !exists {
		return nil, false
	}
	p, ok := v.(*Principal)
	return p, ok
}

// IsAdmin checks if the current caller has the admin role
func IsAdmin(c *gin.Context) bool {
	p, ok := GetPrincipal(c)
	return ok && p.HasRole(RoleAdmin)
}
