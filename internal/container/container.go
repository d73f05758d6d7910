package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/reviewflow/internal/application/dispatcher"
	"github.com/garyjia/reviewflow/internal/application/port"
	"github.com/garyjia/reviewflow/internal/application/service"
	"github.com/garyjia/reviewflow/internal/domain/event"
	"github.com/garyjia/reviewflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/reviewflow/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database *database.DB
	db       *sqlite.DB
	repo     port.WorkflowRepository

	// Application
	dispatcher dispatcher.Dispatcher
	manager    service.WorkflowManager

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database, migrations and repository
// 2. Event dispatcher
// 3. Workflow manager
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repository
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize dispatcher
	d, err := ProvideDispatcher(c.logger)
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}
	c.dispatcher = d
	c.logger.Info("Dispatcher initialized")

	// Step 3: Initialize workflow manager
	manager, err := ProvideManager(&ManagerDeps{
		Repo:       c.repo,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		_ = c.dispatcher.Close()
		c.closeDatabase()
		return fmt.Errorf("failed to initialize workflow manager: %w", err)
	}
	c.manager = manager

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Step 1: Close dispatcher (reverse of step 2)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Step 2: Close database (reverse of step 1)
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	// Check database
	if c.database != nil {
		if err := c.database.Ping(); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	} else {
		status.Components["database"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check dispatcher
	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("handler count: %d", c.handlerCount()),
		}
	} else {
		status.Components["dispatcher"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	// Check manager
	if c.manager != nil {
		status.Components["manager"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["manager"] = ComponentHealth{
			Healthy: false,
			Message: "not initialized",
		}
		status.Overall = false
	}

	return status
}

// Manager returns the workflow manager.
func (c *Container) Manager() service.WorkflowManager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manager
}

// Dispatcher returns the event dispatcher for registering extra handlers.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// initDatabase initializes the database and repository using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = dbBundle.DB
	c.db = dbBundle.TransactionMgr

	repo, err := ProvideRepository(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repo = repo

	return nil
}

func (c *Container) closeDatabase() {
	if c.database == nil {
		return
	}
	if err := c.database.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
	c.database = nil
	c.db = nil
}

func (c *Container) handlerCount() int {
	n := 0
	for _, t := range event.Types {
		n += len(c.dispatcher.Handlers(t))
	}
	return n
}

// zapLoggerAdapter adapts zap.Logger to the service and dispatcher Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
