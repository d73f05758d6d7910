package workflow

// ruleFunc decides which phases a principal may move a workflow to from one phase.
// Branches are evaluated in order and the first match wins, so ownership and the
// editor claim are checked before roles.
type ruleFunc func(snap Snapshot, p Principal) []Phase

var rules = map[Phase]ruleFunc{
	PhaseWaitingToAccept: waitingToAcceptRule,
	PhaseEditorPool:      editorPoolRule,
	PhaseEditor:          editorRule,
	PhaseEditorReview:    editorReviewRule,
	PhaseEnd:             endRule,
}

// NextPhases returns the phases the principal may move to from current.
// It never fails; an unknown phase or an unauthorized principal yields an empty set.
func NextPhases(current Phase, snap Snapshot, p Principal) []Phase {
	rule, ok := rules[current]
	if !ok {
		return []Phase{}
	}
	return dedupe(rule(snap, p))
}

func waitingToAcceptRule(snap Snapshot, p Principal) []Phase {
	switch {
	case p.is(snap.OwnerID):
		return []Phase{PhaseEnd}
	case p.HasRole(RoleAdminEditor):
		return []Phase{PhaseEditorPool, PhaseEnd}
	default:
		return nil
	}
}

func editorPoolRule(_ Snapshot, p Principal) []Phase {
	if p.HasRole(RoleEditor) {
		return []Phase{PhaseEditor}
	}
	return nil
}

func editorRule(snap Snapshot, p Principal) []Phase {
	switch {
	case p.is(snap.EditorID):
		return []Phase{PhaseEditorReview, PhaseEditorPool}
	case p.HasRole(RoleAdminEditor):
		return []Phase{PhaseEditorPool}
	default:
		return nil
	}
}

func editorReviewRule(_ Snapshot, p Principal) []Phase {
	if p.HasRole(RoleAdminEditor) {
		return []Phase{PhaseEditorPool, PhaseEnd}
	}
	return nil
}

func endRule(Snapshot, Principal) []Phase {
	return []Phase{PhaseEnd}
}

func dedupe(phases []Phase) []Phase {
	out := make([]Phase, 0, len(phases))
	seen := make(map[Phase]bool, len(phases))
	for _, p := range phases {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func containsPhase(phases []Phase, target Phase) bool {
	for _, p := range phases {
		if p == target {
			return true
		}
	}
	return false
}
