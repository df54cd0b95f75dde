package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/klauern/docsync/internal/model"
)

// contextLines is how many unchanged lines surround each change.
const contextLines = 3

// FormatConflictDiff renders a conflict for review: a line diff from the
// local to the remote content, then a preview of the merge attempt.
func FormatConflictDiff(info *model.ConflictInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conflict: %s <-> %s\n\n", info.LocalPath, info.RemoteName)

	diffs := lineDiff(info.Local, info.Remote)
	if !hasChanges(diffs) {
		sb.WriteString("(no textual differences)\n")
	} else {
		fmt.Fprintf(&sb, "--- local: %s\n", info.LocalPath)
		fmt.Fprintf(&sb, "+++ remote: %s\n", info.RemoteName)
		writeDiff(&sb, diffs)
	}
	sb.WriteString("\n")

	if info.Merged != nil {
		sb.WriteString("--- Merge result preview ---\n")
		lines := splitLines(*info.Merged)
		for i, l := range lines {
			if i == previewLines {
				fmt.Fprintf(&sb, "  ... (%d more lines)\n", len(lines)-previewLines)
				break
			}
			sb.WriteString("  " + l + "\n")
		}
		sb.WriteString("\n")
	}

	if info.HasMarkers {
		sb.WriteString("WARNING: Merged content contains conflict markers.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func lineDiff(a, b string) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(ca, cb, false)
	return dmp.DiffCharsToLines(diffs, lines)
}

func hasChanges(diffs []diffmatchpatch.Diff) bool {
	for _, d := range diffs {
		if d.Type != diffmatchpatch.DiffEqual {
			return true
		}
	}
	return false
}

// writeDiff prints changed lines with -/+ prefixes and trims long
// unchanged runs down to contextLines on each side of a change.
func writeDiff(sb *strings.Builder, diffs []diffmatchpatch.Diff) {
	last := len(diffs) - 1
	for i, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			for _, l := range lines {
				sb.WriteString("-" + l + "\n")
			}
		case diffmatchpatch.DiffInsert:
			for _, l := range lines {
				sb.WriteString("+" + l + "\n")
			}
		case diffmatchpatch.DiffEqual:
			head, tail := contextLines, contextLines
			if i == 0 {
				head = 0
			}
			if i == last {
				tail = 0
			}
			if len(lines) <= head+tail {
				head, tail = len(lines), 0
			}
			for _, l := range lines[:head] {
				sb.WriteString(" " + l + "\n")
			}
			if hidden := len(lines) - head - tail; hidden > 0 {
				fmt.Fprintf(sb, "@@ %d unchanged lines @@\n", hidden)
			}
			for _, l := range lines[len(lines)-tail:] {
				sb.WriteString(" " + l + "\n")
			}
		}
	}
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}
