package model

import "fmt"

// Direction restricts which side of a pair a run may write to.
type Direction string

const (
	// DirectionPush only writes to the remote store.
	DirectionPush Direction = "push"
	// DirectionPull only writes to the local tree.
	DirectionPull Direction = "pull"
	// DirectionBidirectional writes to both sides.
	DirectionBidirectional Direction = "bidirectional"
)

// IsValid returns true if the direction is recognized.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionPush, DirectionPull, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// WritesLocal reports whether a run in this direction may modify local files.
func (d Direction) WritesLocal() bool {
	return d == DirectionPull || d == DirectionBidirectional
}

// Allows reports whether the action survives direction filtering.
func (d Direction) Allows(a SyncAction) bool {
	switch d {
	case DirectionPush:
		return !a.IsPullSide()
	case DirectionPull:
		return !a.IsPushSide()
	default:
		return true
	}
}

// ParseDirection converts a string to a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.IsValid() {
		return "", fmt.Errorf("unknown direction: %q (want push, pull or bidirectional)", s)
	}
	return d, nil
}

// GitSafety is the policy applied when the local tree has uncommitted changes.
type GitSafety string

const (
	// GitSafetyNone never runs the check.
	GitSafetyNone GitSafety = "none"
	// GitSafetyWarn logs a warning and continues.
	GitSafetyWarn GitSafety = "warn"
	// GitSafetyBlock aborts the run.
	GitSafetyBlock GitSafety = "block"
)

// IsValid returns true if the policy is recognized.
func (g GitSafety) IsValid() bool {
	switch g {
	case GitSafetyNone, GitSafetyWarn, GitSafetyBlock:
		return true
	default:
		return false
	}
}

// ParseGitSafety converts a string to a GitSafety policy.
func ParseGitSafety(s string) (GitSafety, error) {
	g := GitSafety(s)
	if !g.IsValid() {
		return "", fmt.Errorf("unknown git safety policy: %q (want none, warn or block)", s)
	}
	return g, nil
}
