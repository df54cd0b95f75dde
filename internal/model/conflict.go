package model

// Resolution is the outcome chosen for a conflicted pair.
type Resolution string

const (
	// ResolutionLocal keeps the local content.
	ResolutionLocal Resolution = "local"
	// ResolutionRemote takes the remote content.
	ResolutionRemote Resolution = "remote"
	// ResolutionMerged uses a clean three-way merge.
	ResolutionMerged Resolution = "merged"
	// ResolutionMarkers writes conflict markers for a human to edit.
	ResolutionMarkers Resolution = "markers"
	// ResolutionSkip leaves the pair untouched.
	ResolutionSkip Resolution = "skip"
)

// IsValid returns true if the resolution is recognized.
func (r Resolution) IsValid() bool {
	switch r {
	case ResolutionLocal, ResolutionRemote, ResolutionMerged, ResolutionMarkers, ResolutionSkip:
		return true
	default:
		return false
	}
}

// ConflictInfo describes a pair that changed on both sides.
// All content is in the local markup format.
type ConflictInfo struct {
	LocalPath  string
	RemoteName string
	Action     SyncAction

	// Base is the remote content at the archived revision, when known.
	Base *string

	// Local is the current local content ("" when the file is absent).
	Local string

	// Remote is the current remote content ("" when the page is absent).
	Remote string

	// Merged holds the last merge attempt, if any.
	Merged *string

	// HasMarkers is set when Merged contains unresolved conflict markers.
	HasMarkers bool
}

// HasBase reports whether a merge base is available.
func (c *ConflictInfo) HasBase() bool {
	return c.Base != nil
}
