package config

import (
	"github.com/garyjia/reviewflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
	}
}
