package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/garyjia/reviewflow/internal/application/service"
	"github.com/garyjia/reviewflow/internal/config"
	"github.com/garyjia/reviewflow/internal/container"
	"github.com/garyjia/reviewflow/internal/domain/workflow"
	"github.com/garyjia/reviewflow/pkg/utils"
)

type rootFlags struct {
	config string
	dbPath string
	actor  string
	roles  []string
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if path := strings.TrimSpace(c.flags.dbPath); path != "" {
			cfg.Database.Path = path
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withManager starts a container for the duration of fn
func (c *commandContext) withManager(ctx context.Context, fn func(service.WorkflowManager) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctr, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return err
	}
	if err := ctr.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = ctr.Close() }()

	return fn(ctr.Manager())
}

// principal builds the acting principal from --as and --role
func (c *commandContext) principal() (workflow.Principal, error) {
	id := strings.TrimSpace(c.flags.actor)
	if id == "" {
		return workflow.Principal{}, fmt.Errorf("--as is required")
	}

	roles := make([]workflow.Role, 0, len(c.flags.roles))
	for _, raw := range c.flags.roles {
		role, err := workflow.ParseRole(raw)
		if err != nil {
			return workflow.Principal{}, err
		}
		roles = append(roles, role)
	}

	return workflow.NewPrincipal(id, roles...), nil
}
