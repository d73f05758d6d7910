package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reviewflow.log")

	logger, err := NewLogger(LoggerConfig{Level: "info", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("Workflow created", zap.String("workflow_id", "wf-1"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"workflow_id":"wf-1"`)
	assert.Contains(t, string(data), `"service":"reviewflow"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLogger_ConsoleFileHasNoColorCodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	logger, err := NewLogger(LoggerConfig{Level: "warn", OutputPath: path, Format: "console"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("Transition rejected")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "WARN")
	assert.Contains(t, string(data), "Transition rejected")
	assert.NotContains(t, string(data), "\x1b[")
	assert.NotContains(t, string(data), "hidden")
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "chatty", OutputPath: "stderr", Format: "console"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestNewLogger_UnknownFormat(t *testing.T) {
	_, err := NewLogger(LoggerConfig{Level: "info", Format: "xml"})

	assert.ErrorContains(t, err, `unknown log format "xml"`)
}
