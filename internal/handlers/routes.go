package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"market-ledger/internal/middleware"
	"market-ledger/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Services    *services.ServiceContainer
	AuthService *middleware.AuthService
	Logger      *logrus.Logger

	// HealthCheck probes the store. Nil reports healthy.
	HealthCheck func(ctx context.Context) error

	// BuyRateLimit and BuyBurst throttle purchases per trader. Zero disables.
	BuyRateLimit float64
	BuyBurst     int
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	itemHandler := NewItemHandler(config.Services.Inventory, config.Services.Purchases, config.Services.Sales)
	profileHandler := NewProfileHandler(config.Services.Profiles)
	adminHandler := NewAdminHandler(config.Services, config.Logger)
	authHandler := NewAuthHandler(config.AuthService, config.Services.Profiles)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", healthHandler(config))

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)

			authProtected := auth.Group("")
			authProtected.Use(middleware.Authentication(config.AuthService))
			{
				authProtected.POST("/refresh", authHandler.RefreshToken)
				authProtected.GET("/me", authHandler.GetCurrentUser)
			}
		}

		api := v1.Group("")
		api.Use(middleware.Authentication(config.AuthService))
		{
			cars := api.Group("/cars")
			{
				cars.GET("", itemHandler.ListCars)
				cars.GET("/:id", itemHandler.GetCar)
				cars.GET("/:id/overview", itemHandler.GetCarOverview)
				cars.GET("/:id/sales", itemHandler.GetCarSales)
			}

			bikes := api.Group("/bikes")
			{
				bikes.GET("", itemHandler.ListBikes)
				bikes.GET("/:id", itemHandler.GetBike)
				bikes.GET("/:id/sales", itemHandler.GetBikeSales)
			}

			purchases := api.Group("/purchases")
			purchases.Use(middleware.Authorization(middleware.RoleTrader))
			if config.BuyRateLimit > 0 {
				purchases.Use(middleware.RateLimiter(config.BuyRateLimit, config.BuyBurst))
			}
			{
				purchases.POST("", itemHandler.Buy)
			}

			profiles := api.Group("/profiles")
			{
				profiles.GET("", profileHandler.ListProfiles)
				profiles.GET("/search", profileHandler.FindProfiles)
				profiles.GET("/:id", profileHandler.GetProfile)
				profiles.PUT("/:id/password", profileHandler.UpdatePassword)
			}

			admin := api.Group("/admin")
			admin.Use(middleware.Authorization(middleware.RoleAdmin))
			{
				admin.POST("/load", adminHandler.Load)
				admin.POST("/load-all", adminHandler.LoadAll)
				admin.POST("/purge", adminHandler.Purge)
				admin.POST("/export", adminHandler.Export)
				admin.POST("/rebuild", adminHandler.Rebuild)
				admin.GET("/sales", adminHandler.ListSales)
				admin.POST("/archives", adminHandler.SaveArchive)
				admin.GET("/archives", adminHandler.ListArchives)
				admin.GET("/archives/content", adminHandler.GetArchive)
			}
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, logger *logrus.Logger) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.SecurityHeaders())

	// Request size limit (1MB)
	router.Use(middleware.RequestSizeLimit(1 << 20))

	router.Use(middleware.RequestValidation())
	router.Use(middleware.StructuredLogger(logger))
	router.Use(middleware.AuditLogger(logger))
}

// NewRouter builds a fully configured engine
func NewRouter(config *RouterConfig) *gin.Engine {
	router := gin.New()
	SetupMiddleware(router, config.Logger)
	SetupRoutes(router, config)
	return router
}

func healthHandler(config *RouterConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"service":   "market-ledger",
			"version":   Version,
			"timestamp": time.Now().UTC(),
			"mirrors":   config.Services.Mirrors.Sizes(),
		}

		if config.HealthCheck != nil {
			if err := config.HealthCheck(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["error"] = err.Error()
			}
		}
		c.JSON(status, body)
	}
}
