package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys used by workflow events
const (
	KeyFromPhase = "from_phase"
	KeyToPhase   = "to_phase"
	KeyActorID   = "actor_id"
	KeyOwnerID   = "owner_id"
	KeyEditorID  = "editor_id"
	KeyVersion   = "version"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	WorkflowID    string                 `json:"workflow_id"`
	TrackedItemID string                 `json:"tracked_item_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, workflowID, trackedItemID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, workflowID, trackedItemID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, workflowID, trackedItemID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		WorkflowID:    workflowID,
		TrackedItemID: trackedItemID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	out := *e
	out.Payload = newPayload
	return &out
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
