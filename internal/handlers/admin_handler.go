package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/middleware"
	"market-ledger/internal/models"
	"market-ledger/internal/repositories"
	"market-ledger/internal/services"
)

// AdminHandler exposes the maintenance operations reserved to administrators
type AdminHandler struct {
	services *services.ServiceContainer
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(container *services.ServiceContainer, logger *logrus.Logger) *AdminHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminHandler{services: container, logger: logger}
}

// ExportResponse reports how many records an export wrote
type ExportResponse struct {
	Kind    models.Kind `json:"kind"`
	Path    string      `json:"path"`
	Written int         `json:"written"`
}

// @Summary Load a record file
// @Description Load one flat record file under a shared advisory lock. A
// @Description record failure stops the file and is reported as incomplete.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.LoadRequest true "File to load"
// @Success 200 {object} services.LoadResult
// @Failure 400 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /admin/load [post]
func (h *AdminHandler) Load(c *gin.Context) {
	var req services.LoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		respondError(c, err)
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		badRequest(c, "Invalid kind", err)
		return
	}

	result, err := h.services.Loader.Load(c.Request.Context(), kind, req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary Load all record files
// @Description Load profiles, frames, cars and bikes in dependency order
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param plan body services.LoadPlan true "Files per kind"
// @Success 200 {array} services.LoadResult
// @Failure 400 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /admin/load-all [post]
func (h *AdminHandler) LoadAll(c *gin.Context) {
	var plan services.LoadPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	results, err := h.services.Loader.LoadAll(c.Request.Context(), plan)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// @Summary Purge a brand
// @Description Remove every car and bike whose brand matches exactly, or only one kind
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.PurgeRequest true "Brand to purge"
// @Success 200 {object} services.PurgeResult
// @Failure 400 {object} ErrorResponse
// @Router /admin/purge [post]
func (h *AdminHandler) Purge(c *gin.Context) {
	var req services.PurgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	if req.Kind == "" {
		result, err := h.services.Purges.PurgeBrand(ctx, req.Brand)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	kind := models.Kind(req.Kind)
	n, err := h.services.Purges.PurgeBrandOf(ctx, kind, req.Brand)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, &services.PurgeResult{
		Brand:   req.Brand,
		Removed: map[models.Kind]int{kind: n},
		Total:   n,
	})
}

// @Summary Export a kind
// @Description Write the cached entries of one kind to a record file under an exclusive lock
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ExportRequest true "Export target"
// @Success 200 {object} ExportResponse
// @Failure 400 {object} ErrorResponse
// @Failure 423 {object} ErrorResponse
// @Router /admin/export [post]
func (h *AdminHandler) Export(c *gin.Context) {
	var req services.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body", err)
		return
	}
	if err := services.ValidateRequest(&req); err != nil {
		respondError(c, err)
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		badRequest(c, "Invalid kind", err)
		return
	}

	n, err := h.services.Exports.Export(c.Request.Context(), kind, req.Path)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExportResponse{Kind: kind, Path: req.Path, Written: n})
}

// @Summary Save an archive
// @Description Serialise the cached cars and bikes to archive storage
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.ArchiveRequest false "Archive key"
// @Success 201 {object} services.ArchiveInfo
// @Failure 400 {object} ErrorResponse
// @Router /admin/archives [post]
func (h *AdminHandler) SaveArchive(c *gin.Context) {
	var req services.ArchiveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body", err)
			return
		}
	}

	info, err := h.services.Archives.Save(c.Request.Context(), req.Key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

// @Summary List archives
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} storage.FileMetadata
// @Router /admin/archives [get]
func (h *AdminHandler) ListArchives(c *gin.Context) {
	files, err := h.services.Archives.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

// @Summary Read an archive
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param key query string true "Archive key"
// @Success 200 {object} services.Archive
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/archives/content [get]
func (h *AdminHandler) GetArchive(c *gin.Context) {
	archive, err := h.services.Archives.Load(c.Request.Context(), c.Query("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, archive)
}

// @Summary Rebuild caches
// @Description Reload every cache from the store
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Router /admin/rebuild [post]
func (h *AdminHandler) Rebuild(c *gin.Context) {
	if err := h.services.Mirrors.Rebuild(c.Request.Context()); err != nil {
		respondError(c, errors.Join(errors.New("rebuild failed"), err))
		return
	}

	sizes := h.services.Mirrors.Sizes()
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"sizes":      sizes,
	}).Info("Caches rebuilt on request")
	c.JSON(http.StatusOK, sizes)
}

// @Summary List sales
// @Description Every retained sale, oldest first
// @Tags sales
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Limit number of results" default(100)
// @Param offset query int false "Offset for pagination" default(0)
// @Success 200 {array} models.Sale
// @Router /admin/sales [get]
func (h *AdminHandler) ListSales(c *gin.Context) {
	var opts repositories.ListOptions
	if err := c.ShouldBindQuery(&opts); err != nil {
		badRequest(c, "Invalid query parameters", err)
		return
	}

	sales, err := h.services.Sales.ListAll(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}
