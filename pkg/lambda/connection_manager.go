package lambda

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"market-ledger/internal/config"
	"market-ledger/pkg/server"
)

// staleAfter is how long a warm container may sit idle before it is reported unhealthy
const staleAfter = 5 * time.Minute

// ConnectionManager keeps the container and router alive across warm invocations
type ConnectionManager struct {
	mu        sync.RWMutex
	container *server.Container
	engine    *gin.Engine
	proxy     *Proxy
	lastUsed  time.Time
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = &ConnectionManager{}
	})
	return globalConnectionManager
}

// Initialize builds the container with cfg. Later calls are no-ops until Cleanup.
func (cm *ConnectionManager) Initialize(ctx context.Context, cfg *config.Config) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container != nil {
		return nil
	}

	container, err := server.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}

	cm.container = container
	cm.engine = container.Router()
	cm.lastUsed = time.Now()
	return nil
}

// Proxy returns the event proxy over the router, initialising the container
// from the serverless-optimised configuration on first use. routes only
// applies to the call that builds the proxy.
func (cm *ConnectionManager) Proxy(ctx context.Context, routes []Route) (*Proxy, error) {
	cm.mu.Lock()
	if cm.proxy != nil {
		cm.lastUsed = time.Now()
		p := cm.proxy
		cm.mu.Unlock()
		return p, nil
	}
	cm.mu.Unlock()

	cfg, err := config.GetOptimizedConfig()
	if err != nil {
		return nil, err
	}
	if err := cm.Initialize(ctx, cfg); err != nil {
		return nil, err
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.proxy == nil {
		cm.proxy = NewProxy(cm.engine, routes)
	}
	return cm.proxy, nil
}

// IsHealthy checks if the connection manager is healthy
func (cm *ConnectionManager) IsHealthy() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.container == nil {
		return false
	}
	return time.Since(cm.lastUsed) < staleAfter
}

// Cleanup closes the container so the next call initialises a fresh one
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return nil
	}
	err := cm.container.Close()
	cm.container = nil
	cm.engine = nil
	cm.proxy = nil
	return err
}
