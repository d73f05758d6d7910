package container

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/reviewflow/internal/domain/event"
	"github.com/garyjia/reviewflow/internal/domain/workflow"
)

func testConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "container.db")
	return cfg
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Database.Path = ""
	_, err = NewContainer(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestContainer_Lifecycle(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	health := c.Health()
	assert.False(t, health.Overall)
	assert.False(t, c.Ready())

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.Ready())
	assert.Error(t, c.Start(context.Background()), "second start must fail")

	health = c.Health()
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.True(t, health.Components["manager"].Healthy)
	for _, typ := range event.Types {
		assert.Equal(t, []string{"audit-log"}, c.Dispatcher().Handlers(typ), typ.String())
	}

	require.NoError(t, c.Close())
	assert.False(t, c.Ready())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_StartCancelled(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = c.Start(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, c.Ready())
}

func TestContainer_ManagerRoundTrip(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, err := NewContainer(testConfig(t), zap.New(core))
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	manager := c.Manager()

	id, err := manager.CreateWorkflow(ctx, "u1", "item-1")
	require.NoError(t, err)
	_, err = manager.Transition(ctx, id, workflow.PhaseEnd, workflow.NewPrincipal("u1"))
	require.NoError(t, err)

	var audited []string
	for _, entry := range logs.All() {
		if entry.LoggerName == "audit" {
			audited = append(audited, entry.Message)
		}
	}
	assert.Equal(t, []string{"workflow.created", "workflow.phase_changed", "workflow.closed"}, audited)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("workflow_id", "wf-1", 42, "skipped", "error", errors.New("boom"), "dangling")

	require.Len(t, fields, 2)
	assert.Equal(t, "workflow_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}
