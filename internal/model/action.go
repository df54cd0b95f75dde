// Package model defines the core data types shared by the sync engine,
// the mapper, the state store and the reporting layer.
package model

// SyncAction is the reconciliation decision for a single pair.
type SyncAction string

const (
	// ActionSkip leaves both sides alone.
	ActionSkip SyncAction = "SKIP"
	// ActionPush sends a changed local document to the remote store.
	ActionPush SyncAction = "PUSH"
	// ActionPull writes a changed remote page to the local tree.
	ActionPull SyncAction = "PULL"
	// ActionConflict marks a pair changed on both sides.
	ActionConflict SyncAction = "CONFLICT"
	// ActionCreateRemote creates a page for a new local document.
	ActionCreateRemote SyncAction = "CREATE_REMOTE"
	// ActionCreateLocal creates a local document for a new remote page.
	ActionCreateLocal SyncAction = "CREATE_LOCAL"
	// ActionDeleteRemote would remove a page whose local document is gone.
	ActionDeleteRemote SyncAction = "DELETE_REMOTE"
	// ActionDeleteLocal would remove a document whose page is gone.
	ActionDeleteLocal SyncAction = "DELETE_LOCAL"
)

// IsValid returns true if the action is recognized.
func (a SyncAction) IsValid() bool {
	switch a {
	case ActionSkip, ActionPush, ActionPull, ActionConflict,
		ActionCreateRemote, ActionCreateLocal, ActionDeleteRemote, ActionDeleteLocal:
		return true
	default:
		return false
	}
}

// AllActions returns every action in presentation order.
func AllActions() []SyncAction {
	return []SyncAction{
		ActionPush,
		ActionPull,
		ActionCreateRemote,
		ActionCreateLocal,
		ActionDeleteRemote,
		ActionDeleteLocal,
		ActionConflict,
		ActionSkip,
	}
}

// IsPushSide reports whether the action writes to the remote store.
func (a SyncAction) IsPushSide() bool {
	return a == ActionPush || a == ActionCreateRemote || a == ActionDeleteRemote
}

// IsPullSide reports whether the action writes to the local tree.
func (a SyncAction) IsPullSide() bool {
	return a == ActionPull || a == ActionCreateLocal || a == ActionDeleteLocal
}

// String returns the string representation of the action.
func (a SyncAction) String() string {
	return string(a)
}
