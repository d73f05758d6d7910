package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/reviewflow/internal/domain/event"
)

var (
	ErrUnknownEventType = errors.New("unknown workflow event type")
	ErrDuplicateHandler = errors.New("handler already subscribed")
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// Handler reacts to a committed workflow change
type Handler func(ctx context.Context, evt *event.Event) error

// Dispatcher fans committed workflow events out to named handlers.
// Only the workflow event types in event.Types are routable. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Dispatcher interface {
	// Subscribe attaches a handler to one workflow event type
	Subscribe(eventType event.Type, name string, handler Handler) error

	// SubscribeAll attaches a handler to every workflow event type
	SubscribeAll(name string, handler Handler) error

	// Dispatch delivers evt and returns the first handler error
	Dispatch(ctx context.Context, evt *event.Event) error

	// Handlers returns the handler names subscribed to an event type
	Handlers(eventType event.Type) []string

	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type subscription struct {
	name    string
	handler Handler
}

type eventDispatcher struct {
	mu     sync.RWMutex
	routes map[event.Type][]subscription
	logger Logger
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher with an empty route for each workflow event type
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		routes: make(map[event.Type][]subscription, len(event.Types)),
	}
	for _, t := range event.Types {
		d.routes[t] = nil
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, name string, handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.subscribeLocked(eventType, name, handler)
}

// SubscribeAll registers nothing unless every route accepts the name.
func (d *eventDispatcher) SubscribeAll(name string, handler Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range event.Types {
		if d.hasLocked(t, name) {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateHandler, name, t)
		}
	}
	for _, t := range event.Types {
		if err := d.subscribeLocked(t, name, handler); err != nil {
			return err
		}
	}
	return nil
}

func (d *eventDispatcher) subscribeLocked(eventType event.Type, name string, handler Handler) error {
	if !eventType.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	if name == "" || handler == nil {
		return fmt.Errorf("handler name and func are required")
	}
	if d.hasLocked(eventType, name) {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateHandler, name, eventType)
	}

	d.routes[eventType] = append(d.routes[eventType], subscription{name: name, handler: handler})

	if d.logger != nil {
		d.logger.Info("Handler subscribed",
			"event_type", eventType,
			"handler_name", name,
		)
	}
	return nil
}

func (d *eventDispatcher) hasLocked(eventType event.Type, name string) bool {
	for _, s := range d.routes[eventType] {
		if s.name == name {
			return true
		}
	}
	return false
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrDispatcherClosed
	}
	if evt == nil {
		return fmt.Errorf("event is required")
	}

	d.mu.RLock()
	subs, ok := d.routes[evt.Type]
	subs = append([]subscription(nil), subs...)
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, evt.Type)
	}

	for _, s := range subs {
		if err := safeExecute(ctx, evt, s.handler); err != nil {
			if d.logger != nil {
				d.logger.Error("Workflow event handler failed",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"workflow_id", evt.WorkflowID,
					"handler_name", s.name,
					"error", err,
				)
			}
			return fmt.Errorf("workflow %s: handler %s failed: %w", evt.WorkflowID, s.name, err)
		}
	}

	return nil
}

func (d *eventDispatcher) Handlers(eventType event.Type) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.routes[eventType]))
	for _, s := range d.routes[eventType] {
		names = append(names, s.name)
	}
	return names
}

func (d *eventDispatcher) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return ErrDispatcherClosed
	}
	return nil
}

func safeExecute(ctx context.Context, evt *event.Event, handler Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return handler(ctx, evt)
}
