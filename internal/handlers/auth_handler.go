package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"market-ledger/internal/middleware"
	"market-ledger/internal/services"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *middleware.AuthService
	profiles    services.ProfileService
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *middleware.AuthService, profiles services.ProfileService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		profiles:    profiles,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// UserInfo represents the authenticated caller
type UserInfo struct {
	ProfileID int64    `json:"profile_id,omitempty"`
	Username  string   `json:"username"`
	Roles     []string `json:"roles"`
}

// @Summary Login
// @Description Authenticate an administrator or a trader profile and return a JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	principal, err := h.authenticate(c, req)
	if err != nil {
		respondError(c, err)
		return
	}
	h.issue(c, principal)
}

// authenticate tries the administrator credential first, then the profile
// credential of the same nickname
func (h *AuthHandler) authenticate(c *gin.Context, req LoginRequest) (middleware.Principal, error) {
	if err := h.authService.CheckAdmin(req.Username, req.Password); err == nil {
		return middleware.Principal{
			Username: req.Username,
			Roles:    []string{string(middleware.RoleAdmin)},
		}, nil
	}

	profile, err := h.profiles.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		return middleware.Principal{}, err
	}
	return middleware.Principal{
		ProfileID: profile.ID,
		Username:  profile.Nick,
		Roles:     []string{string(middleware.RoleTrader)},
	}, nil
}

// @Summary Refresh Token
// @Description Issue a fresh token for the caller of a valid token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		respondError(c, services.ErrUnauthorized)
		return
	}
	h.issue(c, *principal)
}

// @Summary Current caller
// @Description Return the principal carried by the bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserInfo
// @Failure 401 {object} ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		respondError(c, services.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, userInfo(*principal))
}

func (h *AuthHandler) issue(c *gin.Context, principal middleware.Principal) {
	token, err := h.authService.GenerateToken(principal)
	if err != nil {
		respondError(c, errors.Join(errors.New("failed to generate token"), err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.authService.TokenDuration()),
		User:      userInfo(principal),
	})
}

func userInfo(p middleware.Principal) UserInfo {
	return UserInfo{
		ProfileID: p.ProfileID,
		Username:  strings.TrimSpace(p.Username),
		Roles:     p.Roles,
	}
}
