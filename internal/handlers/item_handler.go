package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"market-ledger/internal/middleware"
	"market-ledger/internal/models"
	"market-ledger/internal/services"
)

// ItemHandler handles car and bike listings and purchases
type ItemHandler struct {
	inventory services.InventoryService
	purchases services.PurchaseService
	sales     services.SalesService
}

// NewItemHandler creates a new item handler
func NewItemHandler(inventory services.InventoryService, purchases services.PurchaseService, sales services.SalesService) *ItemHandler {
	return &ItemHandler{
		inventory: inventory,
		purchases: purchases,
		sales:     sales,
	}
}

// @Summary List cars
// @Description List the cars currently held by the ledger
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param sort query string false "Order by name then price" Enums(name)
// @Success 200 {array} models.Car
// @Router /cars [get]
func (h *ItemHandler) ListCars(c *gin.Context) {
	sorted := c.Query("sort") == "name"
	c.JSON(http.StatusOK, h.inventory.ListCars(c.Request.Context(), sorted))
}

// @Summary List bikes
// @Description List the bikes currently held by the ledger
// @Tags items
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Bike
// @Router /bikes [get]
func (h *ItemHandler) ListBikes(c *gin.Context) {
	c.JSON(http.StatusOK, h.inventory.ListBikes(c.Request.Context()))
}

// @Summary Get a car
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path int true "Car ID"
// @Success 200 {object} models.Car
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /cars/{id} [get]
func (h *ItemHandler) GetCar(c *gin.Context) {
	h.getItem(c, models.KindCar)
}

// @Summary Get a bike
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bike ID"
// @Success 200 {object} models.Bike
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /bikes/{id} [get]
func (h *ItemHandler) GetBike(c *gin.Context) {
	h.getItem(c, models.KindBike)
}

func (h *ItemHandler) getItem(c *gin.Context, kind models.Kind) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.inventory.GetItem(c.Request.Context(), kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Car overview
// @Description Power of a car depreciated to the reference year
// @Tags items
// @Produce json
// @Security BearerAuth
// @Param id path int true "Car ID"
// @Success 200 {object} services.CarOverview
// @Failure 404 {object} ErrorResponse
// @Router /cars/{id}/overview [get]
func (h *ItemHandler) GetCarOverview(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	overview, err := h.inventory.Overview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// @Summary Car sales
// @Description Purchase history of a car, oldest first
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Car ID"
// @Success 200 {array} models.Sale
// @Router /cars/{id}/sales [get]
func (h *ItemHandler) GetCarSales(c *gin.Context) {
	h.itemSales(c, models.KindCar)
}

// @Summary Bike sales
// @Description Purchase history of a bike, oldest first
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param id path int true "Bike ID"
// @Success 200 {array} models.Sale
// @Router /bikes/{id}/sales [get]
func (h *ItemHandler) GetBikeSales(c *gin.Context) {
	h.itemSales(c, models.KindBike)
}

func (h *ItemHandler) itemSales(c *gin.Context, kind models.Kind) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sales, err := h.sales.List(c.Request.Context(), kind, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

// @Summary Buy an item
// @Description Buy a car or bike for the authenticated trader. A rejected
// @Description purchase answers 409 with the unchanged item and its outcome.
// @Tags items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param purchase body services.BuyRequest true "Item to buy"
// @Success 200 {object} services.PurchaseResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} services.PurchaseResult
// @Router /purchases [post]
func (h *ItemHandler) Buy(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok || principal.ProfileID == 0 {
		c.JSON(http.StatusForbidden, middleware.NewErrorResponse(c, "Forbidden", "Only trader profiles can buy items"))
		return
	}

	var req services.BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.purchases.Buy(c.Request.Context(), models.Kind(req.Kind), req.ItemID, principal.ProfileID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome != services.OutcomeSold {
		status = http.StatusConflict
	}
	c.JSON(status, result)
}

// pathID parses the :id parameter, answering 400 when it is malformed
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid ID", fmt.Errorf("id must be a positive integer"))
		return 0, false
	}
	return id, true
}
