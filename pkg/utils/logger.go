package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is stamped on every log entry
const ServiceName = "reviewflow"

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string // debug, info, warn, error
	OutputPath string // stdout, stderr, or file path
	Format     string // json or console
}

// NewLogger builds the CLI logger. An unparseable level falls back to info;
// an unknown format is an error.
func NewLogger(cfg LoggerConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	output := cfg.OutputPath
	if output == "" {
		output = "stderr"
	}
	toFile := output != "stdout" && output != "stderr"
	if toFile {
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoding string
	switch cfg.Format {
	case "json":
		encoding = "json"
	case "console", "":
		encoding = "console"
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		if !toFile {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
		InitialFields:    map[string]interface{}{"service": ServiceName},
	}

	return zc.Build()
}
