package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/reviewflow/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, fmt.Sprint(msg, keysAndValues))
}

func noop(ctx context.Context, evt *event.Event) error { return nil }

func newPhaseChanged() *event.Event {
	return event.NewEvent(event.TypePhaseChanged, "wf-1", "item-1", map[string]interface{}{
		event.KeyToPhase: "EDITOR_POOL",
	})
}

func TestSubscribe(t *testing.T) {
	t.Run("registers named handlers in order", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "audit", noop))
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "notify", noop))

		assert.Equal(t, []string{"audit", "notify"}, d.Handlers(event.TypePhaseChanged))
		assert.Empty(t, d.Handlers(event.TypeWorkflowClosed))
		assert.Len(t, logger.infos, 2)
	})

	t.Run("rejects unknown event type", func(t *testing.T) {
		d := NewDispatcher()

		err := d.Subscribe(event.Type("workflow.archived"), "audit", noop)

		assert.ErrorIs(t, err, ErrUnknownEventType)
		assert.Empty(t, d.Handlers(event.Type("workflow.archived")))
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Subscribe(event.TypeWorkflowClosed, "audit", noop))

		err := d.Subscribe(event.TypeWorkflowClosed, "audit", noop)

		assert.ErrorIs(t, err, ErrDuplicateHandler)
		assert.Equal(t, []string{"audit"}, d.Handlers(event.TypeWorkflowClosed))
	})

	t.Run("rejects missing name or func", func(t *testing.T) {
		d := NewDispatcher()
		assert.Error(t, d.Subscribe(event.TypeWorkflowCreated, "", noop))
		assert.Error(t, d.Subscribe(event.TypeWorkflowCreated, "audit", nil))
	})
}

func TestSubscribeAll(t *testing.T) {
	d := NewDispatcher()
	require.NoError(t, d.SubscribeAll("audit", noop))

	for _, typ := range event.Types {
		assert.Equal(t, []string{"audit"}, d.Handlers(typ), typ.String())
	}

	t.Run("leaves routes untouched on conflict", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Subscribe(event.TypeWorkflowClosed, "notify", noop))

		err := d.SubscribeAll("notify", noop)

		assert.ErrorIs(t, err, ErrDuplicateHandler)
		assert.Empty(t, d.Handlers(event.TypeWorkflowCreated))
		assert.Empty(t, d.Handlers(event.TypePhaseChanged))
	})
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		}))
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second:"+evt.GetPayloadString(event.KeyToPhase))
			return nil
		}))

		require.NoError(t, d.Dispatch(context.Background(), newPhaseChanged()))
		assert.Equal(t, []string{"first", "second:EDITOR_POOL"}, order)
	})

	t.Run("ignores other event types", func(t *testing.T) {
		d := NewDispatcher()
		called := false
		require.NoError(t, d.Subscribe(event.TypeWorkflowCreated, "created", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		}))

		require.NoError(t, d.Dispatch(context.Background(), newPhaseChanged()))
		assert.False(t, called)
	})

	t.Run("rejects unknown event type", func(t *testing.T) {
		d := NewDispatcher()
		evt := event.NewEvent(event.Type("workflow.archived"), "wf-1", "item-1", nil)

		assert.ErrorIs(t, d.Dispatch(context.Background(), evt), ErrUnknownEventType)
		assert.Error(t, d.Dispatch(context.Background(), nil))
	})

	t.Run("stops at first error", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		boom := errors.New("boom")
		secondCalled := false
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "failing", func(ctx context.Context, evt *event.Event) error {
			return boom
		}))
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "after", func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		}))

		err := d.Dispatch(context.Background(), newPhaseChanged())

		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failing")
		assert.Contains(t, err.Error(), "wf-1")
		assert.False(t, secondCalled)
		assert.Len(t, logger.errors, 1)
	})

	t.Run("recovers handler panic", func(t *testing.T) {
		d := NewDispatcher()
		require.NoError(t, d.Subscribe(event.TypePhaseChanged, "explodes", func(ctx context.Context, evt *event.Event) error {
			panic("handler exploded")
		}))

		err := d.Dispatch(context.Background(), newPhaseChanged())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "handler exploded")
	})
}

func TestClose(t *testing.T) {
	d := NewDispatcher()

	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Close(), ErrDispatcherClosed)
	assert.ErrorIs(t, d.Dispatch(context.Background(), newPhaseChanged()), ErrDispatcherClosed)
}
