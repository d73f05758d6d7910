package workflow

import "fmt"

// Workflow is the aggregate that tracks one review of a tracked item.
// history is append-only and never empty; the last entry is the current state.
type Workflow struct {
	id      string
	ownerID string
	open    bool
	history []Snapshot
}

// New creates an open workflow waiting for the item to be accepted
func New(id, ownerID, trackedItemID string) *Workflow {
	initial := Snapshot{
		OwnerID:       ownerID,
		TrackedItemID: trackedItemID,
		Phase:         PhaseWaitingToAccept,
	}
	return &Workflow{
		id:      id,
		ownerID: ownerID,
		open:    true,
		history: []Snapshot{initial},
	}
}

// Restore rebuilds a workflow from persisted state
func Restore(id, ownerID string, open bool, history []Snapshot) (*Workflow, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: workflow %s has no snapshots", ErrCorruptHistory, id)
	}
	for i, snap := range history {
		if !snap.Phase.IsValid() {
			return nil, fmt.Errorf("%w: workflow %s snapshot %d has phase %q", ErrCorruptHistory, id, i, snap.Phase)
		}
	}
	current := history[len(history)-1]
	if open == current.Phase.IsTerminal() {
		return nil, fmt.Errorf("%w: workflow %s open=%t in phase %s", ErrCorruptHistory, id, open, current.Phase)
	}

	return &Workflow{
		id:      id,
		ownerID: ownerID,
		open:    open,
		history: append([]Snapshot(nil), history...),
	}, nil
}

// ID returns the workflow identifier
func (w *Workflow) ID() string {
	return w.id
}

// OwnerID returns the id of the principal who submitted the item
func (w *Workflow) OwnerID() string {
	return w.ownerID
}

// IsOpen reports whether the workflow has not yet reached End
func (w *Workflow) IsOpen() bool {
	return w.open
}

// Current returns the latest snapshot
func (w *Workflow) Current() Snapshot {
	return w.history[len(w.history)-1]
}

// Phase returns the current phase
func (w *Workflow) Phase() Phase {
	return w.Current().Phase
}

// TrackedItemID returns the id of the item under review
func (w *Workflow) TrackedItemID() string {
	return w.Current().TrackedItemID
}

// History returns a copy of every snapshot, earliest first
func (w *Workflow) History() []Snapshot {
	return append([]Snapshot(nil), w.history...)
}

// Version is the optimistic concurrency token for the aggregate. It equals the
// history length, so it grows by exactly one per applied transition.
func (w *Workflow) Version() int64 {
	return int64(len(w.history))
}

// NextPhases returns the phases the principal may move the workflow to
func (w *Workflow) NextPhases(p Principal) []Phase {
	current := w.Current()
	return NextPhases(current.Phase, current, p)
}

// Transition moves the workflow to desired on behalf of p, appending a snapshot.
// The workflow is left untouched when the move is not allowed.
func (w *Workflow) Transition(desired Phase, p Principal) (Phase, error) {
	current := w.Current()
	if !w.open {
		return "", fmt.Errorf("%w: workflow %s is closed", ErrInvalidTransition, w.id)
	}
	allowed := NextPhases(current.Phase, current, p)
	if !containsPhase(allowed, desired) {
		return "", fmt.Errorf("%w: %s -> %s for principal %q", ErrInvalidTransition, current.Phase, desired, p.ID)
	}

	w.history = append(w.history, current.advance(desired, p))
	if desired.IsTerminal() {
		w.open = false
	}

	return desired, nil
}
