package workflow

// Snapshot captures a workflow's mutable fields at one point in time.
// Snapshots are values; a transition produces a new one rather than editing the old.
type Snapshot struct {
	OwnerID       string `json:"owner_id"`
	EditorID      string `json:"editor_id,omitempty"`
	TrackedItemID string `json:"tracked_item_id"`
	Phase         Phase  `json:"phase"`
}

// HasEditor reports whether an editor currently holds the item
func (s Snapshot) HasEditor() bool {
	return s.EditorID != ""
}

// advance derives the snapshot that follows s when actor moves it to next.
// Entering Editor claims the item for actor; entering EditorPool releases it.
func (s Snapshot) advance(next Phase, actor Principal) Snapshot {
	out := s
	out.Phase = next
	switch next {
	case PhaseEditor:
		out.EditorID = actor.ID
	case PhaseEditorPool:
		out.EditorID = ""
	}
	return out
}
