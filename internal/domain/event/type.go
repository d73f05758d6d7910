package event

// Type identifies the type of domain event
type Type string

const (
	TypeWorkflowCreated Type = "workflow.created"
	TypePhaseChanged    Type = "workflow.phase_changed"
	TypeWorkflowClosed  Type = "workflow.closed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeWorkflowCreated,
		TypePhaseChanged,
		TypeWorkflowClosed:
		return true
	default:
		return false
	}
}

// Types lists every workflow event type in lifecycle order
var Types = []Type{TypeWorkflowCreated, TypePhaseChanged, TypeWorkflowClosed}
