package sync

import (
	"log/slog"
	"strings"

	"github.com/klauern/docsync/internal/logging"
)

// Conflict markers written into local files.
const (
	MarkerLocal     = "<<<<<<< LOCAL"
	MarkerSeparator = "======="
	MarkerRemote    = ">>>>>>> REMOTE"
)

// MergeResult represents the outcome of a merge operation.
type MergeResult struct {
	// Success indicates if the merge completed without conflicts.
	Success bool

	// Content is the merged content (may contain conflict markers if not successful).
	Content string

	// HasConflictMarkers indicates if the content contains conflict markers.
	HasConflictMarkers bool

	// Conflicts contains details about any conflicts encountered.
	Conflicts []MergeConflict
}

// MergeConflict represents a specific conflict region in the merge.
type MergeConflict struct {
	// StartLine is the 1-based line where the marker block starts.
	StartLine int

	// EndLine is the line of the closing marker.
	EndLine int

	Local  string
	Remote string
	Base   string
}

// Merger merges local and remote document text line by line.
type Merger struct {
	MarkerStart  string
	MarkerMiddle string
	MarkerEnd    string
}

// NewMerger creates a merger with LOCAL/REMOTE conflict markers.
func NewMerger() *Merger {
	return &Merger{
		MarkerStart:  MarkerLocal,
		MarkerMiddle: MarkerSeparator,
		MarkerEnd:    MarkerRemote,
	}
}

// ContainsMarkers reports whether text still holds an unresolved conflict.
func ContainsMarkers(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, MarkerLocal) || strings.HasPrefix(line, MarkerRemote) {
			return true
		}
	}
	return false
}

// WholeFileMarkers wraps both versions in a single conflict block. It is
// used when no merge base exists.
func WholeFileMarkers(local, remote string) string {
	return MarkerLocal + "\n" + local + "\n" + MarkerSeparator + "\n" + remote + "\n" + MarkerRemote + "\n"
}

// ThreeWayMerge merges local and remote against their common base.
func (m *Merger) ThreeWayMerge(base, local, remote string) MergeResult {
	logging.Debug("starting three-way merge",
		logging.Operation("merge"),
		slog.Int("base_lines", strings.Count(base, "\n")+1),
	)

	result := m.threeWayMergeLines(
		strings.Split(base, "\n"),
		strings.Split(local, "\n"),
		strings.Split(remote, "\n"),
	)

	logging.Debug("three-way merge completed",
		slog.Bool("success", result.Success),
		logging.Count(len(result.Conflicts)),
	)
	return result
}

// TwoWayMerge merges local and remote without a common base. Lines only
// one side has are kept; regions both sides changed become conflicts.
func (m *Merger) TwoWayMerge(local, remote string) MergeResult {
	return m.twoWayMerge(strings.Split(local, "\n"), strings.Split(remote, "\n"))
}

func (m *Merger) twoWayMerge(local, remote []string) MergeResult {
	logging.Debug("starting two-way merge",
		logging.Operation("merge"),
		slog.Int("local_lines", len(local)),
		slog.Int("remote_lines", len(remote)),
	)

	result := MergeResult{Success: true, Conflicts: make([]MergeConflict, 0)}

	lcs := longestCommonSubsequence(local, remote)

	var merged []string
	localIdx, remoteIdx, lcsIdx := 0, 0, 0

	for localIdx < len(local) || remoteIdx < len(remote) {
		localInLCS := localIdx < len(local) && lcsIdx < len(lcs) && local[localIdx] == lcs[lcsIdx]
		remoteInLCS := remoteIdx < len(remote) && lcsIdx < len(lcs) && remote[remoteIdx] == lcs[lcsIdx]

		if localInLCS && remoteInLCS {
			merged = append(merged, local[localIdx])
			localIdx++
			remoteIdx++
			lcsIdx++
			continue
		}

		var localSection, remoteSection []string
		for localIdx < len(local) && (lcsIdx >= len(lcs) || local[localIdx] != lcs[lcsIdx]) {
			localSection = append(localSection, local[localIdx])
			localIdx++
		}
		for remoteIdx < len(remote) && (lcsIdx >= len(lcs) || remote[remoteIdx] != lcs[lcsIdx]) {
			remoteSection = append(remoteSection, remote[remoteIdx])
			remoteIdx++
		}

		switch {
		case len(localSection) > 0 && len(remoteSection) > 0:
			merged = m.appendConflict(merged, localSection, remoteSection, nil, &result)
		case len(localSection) > 0:
			merged = append(merged, localSection...)
		case len(remoteSection) > 0:
			merged = append(merged, remoteSection...)
		}
	}

	result.Content = strings.Join(merged, "\n")
	return result
}

func (m *Merger) threeWayMergeLines(base, local, remote []string) MergeResult {
	result := MergeResult{Success: true, Conflicts: make([]MergeConflict, 0)}

	localChanges := findChanges(base, local)
	remoteChanges := findChanges(base, remote)

	merged := m.applyChanges(base, localChanges, remoteChanges, &result)

	result.Content = strings.Join(merged, "\n")
	return result
}

// Change is a replacement of base[BaseStart:BaseEnd] by NewLines. An
// insertion has BaseStart == BaseEnd.
type Change struct {
	BaseStart int
	BaseEnd   int
	NewLines  []string
}

// findChanges lists the edits that turn base into derived, in base order.
func findChanges(base, derived []string) []Change {
	var changes []Change

	lcs := longestCommonSubsequence(base, derived)
	baseIdx, derivedIdx, lcsIdx := 0, 0, 0

	for baseIdx < len(base) || derivedIdx < len(derived) {
		baseInLCS := baseIdx < len(base) && lcsIdx < len(lcs) && base[baseIdx] == lcs[lcsIdx]
		derivedInLCS := derivedIdx < len(derived) && lcsIdx < len(lcs) && derived[derivedIdx] == lcs[lcsIdx]

		if baseInLCS && derivedInLCS {
			baseIdx++
			derivedIdx++
			lcsIdx++
			continue
		}

		start := baseIdx
		var newLines []string
		for baseIdx < len(base) && (lcsIdx >= len(lcs) || base[baseIdx] != lcs[lcsIdx]) {
			baseIdx++
		}
		for derivedIdx < len(derived) && (lcsIdx >= len(lcs) || derived[derivedIdx] != lcs[lcsIdx]) {
			newLines = append(newLines, derived[derivedIdx])
			derivedIdx++
		}
		changes = append(changes, Change{BaseStart: start, BaseEnd: baseIdx, NewLines: newLines})
	}

	return changes
}

// applyChanges replays both change lists over base. Changes from the two
// sides that touch overlapping base regions are a conflict unless they are
// identical.
func (m *Merger) applyChanges(base []string, localChanges, remoteChanges []Change, result *MergeResult) []string {
	var merged []string
	li, ri := 0, 0
	pos := 0

	for pos <= len(base) {
		startsLocal := li < len(localChanges) && localChanges[li].BaseStart == pos
		startsRemote := ri < len(remoteChanges) && remoteChanges[ri].BaseStart == pos

		if !startsLocal && !startsRemote {
			if pos < len(base) {
				merged = append(merged, base[pos])
			}
			pos++
			continue
		}

		// Grow the region until no change from either side straddles its end.
		end := pos
		lEnd, rEnd := li, ri
		for {
			grown := false
			for lEnd < len(localChanges) && (localChanges[lEnd].BaseStart < end || localChanges[lEnd].BaseStart == pos) {
				end = max(end, localChanges[lEnd].BaseEnd)
				lEnd++
				grown = true
			}
			for rEnd < len(remoteChanges) && (remoteChanges[rEnd].BaseStart < end || remoteChanges[rEnd].BaseStart == pos) {
				end = max(end, remoteChanges[rEnd].BaseEnd)
				rEnd++
				grown = true
			}
			if !grown {
				break
			}
		}

		localRegion := localChanges[li:lEnd]
		remoteRegion := remoteChanges[ri:rEnd]
		li, ri = lEnd, rEnd

		switch {
		case len(remoteRegion) == 0:
			merged = append(merged, replay(base, localRegion, pos, end)...)
		case len(localRegion) == 0:
			merged = append(merged, replay(base, remoteRegion, pos, end)...)
		default:
			localLines := replay(base, localRegion, pos, end)
			remoteLines := replay(base, remoteRegion, pos, end)
			if linesEqual(localLines, remoteLines) {
				merged = append(merged, localLines...)
			} else {
				merged = m.appendConflict(merged, localLines, remoteLines, base[pos:end], result)
			}
		}

		// An insertion-only region consumes no base lines; the base line at
		// pos is emitted on the next iteration.
		pos = end
	}

	return merged
}

func (m *Merger) appendConflict(merged, local, remote, base []string, result *MergeResult) []string {
	result.Success = false
	result.HasConflictMarkers = true

	conflict := MergeConflict{
		StartLine: len(merged) + 1,
		Local:     strings.Join(local, "\n"),
		Remote:    strings.Join(remote, "\n"),
		Base:      strings.Join(base, "\n"),
	}

	merged = append(merged, m.MarkerStart)
	merged = append(merged, local...)
	merged = append(merged, m.MarkerMiddle)
	merged = append(merged, remote...)
	merged = append(merged, m.MarkerEnd)

	conflict.EndLine = len(merged)
	result.Conflicts = append(result.Conflicts, conflict)
	return merged
}

// replay applies changes to base[start:end].
func replay(base []string, changes []Change, start, end int) []string {
	var out []string
	cur := start
	for _, c := range changes {
		out = append(out, base[cur:c.BaseStart]...)
		out = append(out, c.NewLines...)
		cur = c.BaseEnd
	}
	return append(out, base[cur:end]...)
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// longestCommonSubsequence finds the LCS of two string slices.
func longestCommonSubsequence(a, b []string) []string {
	lenA, lenB := len(a), len(b)
	if lenA == 0 || lenB == 0 {
		return nil
	}

	dp := make([][]int, lenA+1)
	for i := range dp {
		dp[i] = make([]int, lenB+1)
	}

	for i := 1; i <= lenA; i++ {
		for j := 1; j <= lenB; j++ {
			if a[i-1] == b[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else {
				dp[i][j] = max(dp[i-1][j], dp[i][j-1])
			}
		}
	}

	lcs := make([]string, dp[lenA][lenB])
	i, j, idx := lenA, lenB, dp[lenA][lenB]-1

	for i > 0 && j > 0 {
		switch {
		case a[i-1] == b[j-1]:
			lcs[idx] = a[i-1]
			i--
			j--
			idx--
		case dp[i-1][j] > dp[i][j-1]:
			i--
		default:
			j--
		}
	}

	return lcs
}
