package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func truncateText(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(text) <= width {
		return text
	}
	if width <= 3 {
		return text[:width]
	}
	return text[:width-3] + "..."
}

// styleDiff colors the lines of a plain unified-style diff.
func styleDiff(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		var style lipgloss.Style
		switch {
		case strings.HasPrefix(line, "--- local:"), strings.HasPrefix(line, "+++ remote:"):
			style = conflictStyles.Header
		case strings.HasPrefix(line, "---"), strings.HasPrefix(line, "Conflict:"):
			style = conflictStyles.SectionHdr
		case strings.HasPrefix(line, "@@"):
			style = conflictStyles.Info
		case strings.HasPrefix(line, "-"):
			style = conflictStyles.Removed
		case strings.HasPrefix(line, "+"):
			style = conflictStyles.Added
		case strings.HasPrefix(line, "WARNING:"):
			style = conflictStyles.Warning
		default:
			continue
		}
		lines[i] = style.Render(line)
	}
	return strings.Join(lines, "\n")
}
