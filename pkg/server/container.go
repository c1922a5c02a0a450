package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"market-ledger/internal/adapters/storage"
	"market-ledger/internal/config"
	"market-ledger/internal/database"
	"market-ledger/internal/handlers"
	"market-ledger/internal/messaging"
	"market-ledger/internal/middleware"
	"market-ledger/internal/repositories"
	"market-ledger/internal/repositories/sqlite"
	"market-ledger/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *logrus.Logger
	Database     *database.Manager
	Repositories repositories.RepositoryManager
	Services     *services.ServiceContainer
	Auth         *middleware.AuthService

	publisher *messaging.RabbitMQPublisher
}

// NewContainer opens the store, builds the services and fills the mirrors
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger()
	c := &Container{Config: cfg, Logger: logger}

	c.Database = database.NewManager(cfg.RepositoryConfig(), logger)
	if err := c.Database.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	c.Repositories = sqlite.NewSQLiteRepositoryManager(c.Database.GetDB(), logger)

	fileStorage, err := storage.CreateFromConfig(ctx, &cfg.Storage)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create archive storage: %w", err)
	}

	// events are best effort: a broker that cannot be reached disables them
	var publisher services.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := messaging.NewRabbitMQPublisher(messaging.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		}, logger)
		if err != nil {
			logger.WithError(err).Warn("Event publishing disabled")
		} else {
			c.publisher = p
			publisher = p
		}
	}

	c.Services, err = services.NewServiceContainer(c.Repositories, &services.ServiceConfig{
		LockOptions: cfg.LockOptions(),
		Storage:     fileStorage,
		Publisher:   publisher,
		Logger:      logger,
	})
	if err != nil {
		fileStorage.Close()
		c.Close()
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}

	if err := c.Services.Mirrors.Rebuild(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to rebuild mirrors: %w", err)
	}

	c.Auth = middleware.NewAuthService(&middleware.AuthConfig{
		JWTSecret:         cfg.JWT.Secret,
		TokenDuration:     time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		AdminUsername:     cfg.Admin.Username,
		AdminPasswordHash: cfg.Admin.PasswordHash,
	})

	logger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"driver":      cfg.Database.Driver,
		"storage":     cfg.Storage.Type,
		"events":      publisher != nil,
	}).Info("Container initialised")
	return c, nil
}

// Router builds the HTTP engine serving the container's services
func (c *Container) Router() *gin.Engine {
	if c.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	return handlers.NewRouter(&handlers.RouterConfig{
		Services:     c.Services,
		AuthService:  c.Auth,
		Logger:       c.Logger,
		HealthCheck:  c.Database.CheckHealth,
		BuyRateLimit: c.Config.RateLimit.RPS,
		BuyBurst:     c.Config.RateLimit.Burst,
	})
}

// Close cleans up all resources
func (c *Container) Close() error {
	var errs []error

	if c.Services != nil {
		if err := c.Services.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close services: %w", err))
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close publisher: %w", err))
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
