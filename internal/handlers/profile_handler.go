package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"market-ledger/internal/middleware"
	"market-ledger/internal/services"
)

// ProfileHandler handles profile queries and credential changes
type ProfileHandler struct {
	profiles services.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profiles services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// @Summary List profiles
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Profile
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, h.profiles.ListProfiles(c.Request.Context()))
}

// @Summary Find profiles
// @Description Profiles strictly older than min_age whose balance is strictly below max_balance
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param min_age query int true "Exclusive lower age bound"
// @Param max_balance query string true "Exclusive upper balance bound"
// @Success 200 {array} models.Profile
// @Failure 400 {object} ErrorResponse
// @Router /profiles/search [get]
func (h *ProfileHandler) FindProfiles(c *gin.Context) {
	var req services.ProfileQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		respondError(c, err)
		return
	}

	maxBalance, err := decimal.NewFromString(req.MaxBalance)
	if err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	profiles, err := h.profiles.FindProfiles(c.Request.Context(), req.MinAge, maxBalance)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profiles)
}

// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} models.Profile
// @Failure 404 {object} ErrorResponse
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	profile, err := h.profiles.GetProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// @Summary Change a password
// @Description Traders may change their own password, administrators any password
// @Tags profiles
// @Accept json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param password body services.PasswordUpdateRequest true "New password"
// @Success 204
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /profiles/{id}/password [put]
func (h *ProfileHandler) UpdatePassword(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	principal, _ := middleware.GetPrincipal(c)
	if principal == nil || (principal.ProfileID != id && !principal.HasRole(middleware.RoleAdmin)) {
		c.JSON(http.StatusForbidden, middleware.NewErrorResponse(c, "Forbidden", "Cannot change another profile's password"))
		return
	}

	var req services.PasswordUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	if err := h.profiles.UpdatePassword(c.Request.Context(), id, req.Password); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
