// Package state persists per-profile sync state between runs.
package state

import (
	"sort"
	"time"
)

// SchemaVersion is the current state file format.
const SchemaVersion = 1

// Entry records what both sides looked like at the last successful sync
// of one local path.
type Entry struct {
	RemoteName    string  `json:"remote_name"`
	LocalHash     *string `json:"local_hash"`
	RemoteHash    *string `json:"remote_hash"`
	RemoteVersion *int    `json:"remote_version"`
	LastSynced    string  `json:"last_synced"`
	Conflicted    bool    `json:"conflicted"`
}

// State is the persisted container for one profile.
// It is owned by a single run and mutated only through its methods.
type State struct {
	Version  int              `json:"version"`
	LastSync *string          `json:"last_sync"`
	Profile  string           `json:"profile"`
	Entries  map[string]Entry `json:"entries"`
}

// New returns an empty state for a profile.
func New(profile string) *State {
	return &State{
		Version: SchemaVersion,
		Profile: profile,
		Entries: make(map[string]Entry),
	}
}

// Entry returns the entry for a local path.
func (s *State) Entry(localPath string) (Entry, bool) {
	e, ok := s.Entries[localPath]
	return e, ok
}

// SetEntry stores an entry, stamping LastSynced if it is empty.
func (s *State) SetEntry(localPath string, e Entry) {
	if s.Entries == nil {
		s.Entries = make(map[string]Entry)
	}
	if e.LastSynced == "" {
		e.LastSynced = Timestamp(time.Now())
	}
	s.Entries[localPath] = e
}

// RemoveEntry deletes the entry for a local path, if any.
func (s *State) RemoveEntry(localPath string) {
	delete(s.Entries, localPath)
}

// IsConflicted is true only when an entry exists and is flagged.
func (s *State) IsConflicted(localPath string) bool {
	e, ok := s.Entries[localPath]
	return ok && e.Conflicted
}

// ClearConflict unsets the conflicted flag and reports whether it was set.
func (s *State) ClearConflict(localPath string) bool {
	e, ok := s.Entries[localPath]
	if !ok || !e.Conflicted {
		return false
	}
	e.Conflicted = false
	s.Entries[localPath] = e
	return true
}

// Paths returns every tracked local path in sorted order.
func (s *State) Paths() []string {
	paths := make([]string, 0, len(s.Entries))
	for p := range s.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ConflictedPaths returns the sorted local paths flagged as conflicted.
func (s *State) ConflictedPaths() []string {
	var paths []string
	for _, p := range s.Paths() {
		if s.Entries[p].Conflicted {
			paths = append(paths, p)
		}
	}
	return paths
}

// LastSyncTime parses LastSync, returning the zero time when unset.
func (s *State) LastSyncTime() time.Time {
	if s.LastSync == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *s.LastSync)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Timestamp formats t the way the state file stores times.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
