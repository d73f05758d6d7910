package workflow

import (
	"fmt"
	"strings"
)

// Phase is a workflow's position in the review lifecycle
type Phase string

const (
	PhaseWaitingToAccept Phase = "WAITING_TO_ACCEPT"
	PhaseEditorPool      Phase = "EDITOR_POOL"
	PhaseEditor          Phase = "EDITOR"
	PhaseEditorReview    Phase = "EDITOR_REVIEW"
	PhaseEnd             Phase = "END"
)

// AllPhases lists every phase in lifecycle order
var AllPhases = []Phase{
	PhaseWaitingToAccept,
	PhaseEditorPool,
	PhaseEditor,
	PhaseEditorReview,
	PhaseEnd,
}

var validPhases = map[Phase]bool{
	PhaseWaitingToAccept: true,
	PhaseEditorPool:      true,
	PhaseEditor:          true,
	PhaseEditorReview:    true,
	PhaseEnd:             true,
}

// IsTerminal returns true if the phase closes the workflow
func (p Phase) IsTerminal() bool {
	return p == PhaseEnd
}

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is one of the known phases
func (p Phase) IsValid() bool {
	return validPhases[p]
}

// ParsePhase accepts the canonical name in any case, with '-' or '_' separators.
func ParsePhase(s string) (Phase, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	p := Phase(normalized)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhase, s)
	}
	return p, nil
}
