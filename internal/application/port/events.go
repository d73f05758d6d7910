package port

import (
	"context"

	"github.com/garyjia/reviewflow/internal/domain/event"
)

// EventPublisher delivers domain events after a workflow change is committed
type EventPublisher interface {
	Dispatch(ctx context.Context, evt *event.Event) error
}
