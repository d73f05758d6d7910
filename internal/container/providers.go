package container

import (
	"context"
	"fmt"

	"github.com/garyjia/reviewflow/internal/application/dispatcher"
	"github.com/garyjia/reviewflow/internal/application/port"
	"github.com/garyjia/reviewflow/internal/application/service"
	"github.com/garyjia/reviewflow/internal/domain/event"
	"github.com/garyjia/reviewflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/reviewflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/reviewflow/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// it in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepository creates the workflow repository.
func ProvideRepository(db *sqlite.DB, logger *zap.Logger) (port.WorkflowRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return repository.NewWorkflowRepository(db, logger), nil
}

// ProvideDispatcher creates the event dispatcher and registers the audit log handler.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	d := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	)

	if err := d.SubscribeAll("audit-log", createAuditLogHandler(logger.Named("audit"))); err != nil {
		return nil, fmt.Errorf("failed to subscribe audit log: %w", err)
	}

	return d, nil
}

// ManagerDeps holds dependencies required for creating the workflow manager.
type ManagerDeps struct {
	Repo       port.WorkflowRepository
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideManager creates the workflow manager.
func ProvideManager(deps *ManagerDeps) (service.WorkflowManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("manager dependencies are required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	var opts []service.ManagerOption
	if deps.Dispatcher != nil {
		opts = append(opts, service.WithPublisher(deps.Dispatcher))
	}

	return service.NewWorkflowManager(deps.Repo, &zapLoggerAdapter{logger: deps.Logger}, opts...), nil
}

// createAuditLogHandler records every committed workflow change.
func createAuditLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("workflow_id", evt.WorkflowID),
			zap.String("tracked_item_id", evt.TrackedItemID),
			zap.String("correlation_id", evt.CorrelationID),
		}
		for _, key := range []string{event.KeyFromPhase, event.KeyToPhase, event.KeyActorID, event.KeyEditorID} {
			if v := evt.GetPayloadString(key); v != "" {
				fields = append(fields, zap.String(key, v))
			}
		}
		if v := evt.GetPayloadInt(event.KeyVersion); v > 0 {
			fields = append(fields, zap.Int64(event.KeyVersion, v))
		}

		logger.Info(evt.Type.String(), fields...)
		return nil
	}
}
