package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvFile is loaded into the process environment before config is read, if present
const EnvFile = ".env"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile exports KEY=VALUE pairs from path without overriding variables already set
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "data/reviewflow.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.format", "console")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("database.path", "REVIEWFLOW_DB_PATH")
	_ = v.BindEnv("database.migrations_dir", "REVIEWFLOW_MIGRATIONS_DIR")
	_ = v.BindEnv("logger.level", "REVIEWFLOW_LOG_LEVEL")
	_ = v.BindEnv("logger.output_path", "REVIEWFLOW_LOG_OUTPUT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 {
		return fmt.Errorf("database.max_open_conns must not be negative")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level must be debug, info, warn or error, got %q", c.Logger.Level)
	}

	return nil
}
