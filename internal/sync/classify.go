package sync

import (
	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/state"
)

// Sides holds the current hash of each side of a pair. A nil hash means
// that side is absent.
type Sides struct {
	LocalHash  *string
	RemoteHash *string
}

// Classify compares the current hashes of a pair against its archived
// entry and returns the reconciliation action. entry is nil when the pair
// has never been synced; an entry with neither hash counts the same.
func Classify(cur Sides, entry *state.Entry) model.SyncAction {
	localExists := cur.LocalHash != nil
	remoteExists := cur.RemoteHash != nil

	if !localExists && !remoteExists {
		return model.ActionSkip
	}

	if entry == nil || (entry.LocalHash == nil && entry.RemoteHash == nil) {
		switch {
		case localExists && !remoteExists:
			return model.ActionCreateRemote
		case remoteExists && !localExists:
			return model.ActionCreateLocal
		default:
			return model.ActionConflict
		}
	}

	localChanged := !equalHash(cur.LocalHash, entry.LocalHash)
	remoteChanged := !equalHash(cur.RemoteHash, entry.RemoteHash)

	switch {
	case !localExists:
		if remoteChanged {
			return model.ActionConflict
		}
		return model.ActionDeleteRemote
	case !remoteExists:
		if localChanged {
			return model.ActionConflict
		}
		return model.ActionDeleteLocal
	case localChanged && remoteChanged:
		return model.ActionConflict
	case localChanged:
		return model.ActionPush
	case remoteChanged:
		return model.ActionPull
	default:
		return model.ActionSkip
	}
}

// FilterByDirection downgrades actions the direction forbids to SKIP.
func FilterByDirection(action model.SyncAction, d model.Direction) model.SyncAction {
	if d.Allows(action) {
		return action
	}
	return model.ActionSkip
}

func equalHash(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
