package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when the requested phase is not legal for the principal
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrInvalidPhase is returned when a phase is not one of the known phases
	ErrInvalidPhase = errors.New("invalid phase")

	// ErrWorkflowNotFound is returned when no workflow exists with the given id
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrDuplicateActiveWorkflow is returned when the tracked item already has an open workflow
	ErrDuplicateActiveWorkflow = errors.New("tracked item already has an open workflow")

	// ErrConcurrentModification is returned when another writer advanced the workflow first
	ErrConcurrentModification = errors.New("workflow was modified concurrently")

	// ErrCorruptHistory is returned when persisted state cannot form a valid workflow
	ErrCorruptHistory = errors.New("corrupt workflow history")
)
