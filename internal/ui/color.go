// Package ui provides terminal styling shared by the report and CLI layers.
package ui

import (
	"os"

	"github.com/fatih/color"

	"github.com/klauern/docsync/internal/model"
)

// Color functions for styled output.
var (
	// Success is used for completed writes (green).
	Success = color.New(color.FgGreen).SprintFunc()
	// Error is used for failures (red).
	Error = color.New(color.FgRed).SprintFunc()
	// Warning is used for conflicts and lossy conversions (yellow).
	Warning = color.New(color.FgYellow).SprintFunc()
	// Info is used for informational messages (cyan).
	Info = color.New(color.FgCyan).SprintFunc()
	// Bold is used for emphasis.
	Bold = color.New(color.Bold).SprintFunc()
	// Dim is used for secondary information.
	Dim = color.New(color.Faint).SprintFunc()
	// Header is used for section titles (bold cyan).
	Header = color.New(color.FgCyan, color.Bold).SprintFunc()
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolSkipped = "-"
	SymbolPending = "○"
)

// StatusSuccess returns a green checkmark with optional message.
func StatusSuccess(msg string) string {
	return withSymbol(Success(SymbolSuccess), msg)
}

// StatusError returns a red X with optional message.
func StatusError(msg string) string {
	return withSymbol(Error(SymbolError), msg)
}

// StatusWarning returns a yellow warning sign with optional message.
func StatusWarning(msg string) string {
	return withSymbol(Warning(SymbolWarning), msg)
}

// StatusSkipped returns a dimmed dash with optional message.
func StatusSkipped(msg string) string {
	return withSymbol(Dim(SymbolSkipped), msg)
}

func withSymbol(symbol, msg string) string {
	if msg == "" {
		return symbol
	}
	return symbol + " " + msg
}

// Action renders an action name in the color of its effect: writes in
// green, conflicts in yellow, deletes and skips dimmed.
func Action(a model.SyncAction) string {
	label := "[" + a.String() + "]"
	switch a {
	case model.ActionPush, model.ActionPull, model.ActionCreateRemote, model.ActionCreateLocal:
		return Success(label)
	case model.ActionConflict:
		return Warning(label)
	case model.ActionDeleteRemote, model.ActionDeleteLocal, model.ActionSkip:
		return Dim(label)
	default:
		return label
	}
}

// Result renders a one-line status for a single pair.
func Result(res model.SyncResult) string {
	line := res.LocalPath + " -> " + res.RemoteName
	if res.LocalPath == "" && res.RemoteName == "" {
		line = "(run)"
	}
	switch {
	case !res.Success:
		return StatusError(line + ": " + res.Error)
	case res.Action == model.ActionConflict:
		return StatusWarning(line + noteSuffix(res.Error))
	case res.Action == model.ActionSkip:
		return StatusSkipped(line + noteSuffix(res.Error))
	default:
		return StatusSuccess(line + noteSuffix(res.Error))
	}
}

func noteSuffix(note string) string {
	if note == "" {
		return ""
	}
	return " (" + note + ")"
}

// Configure applies the --no-color flag. NO_COLOR and non-terminal output
// are already honored by the color package.
func Configure(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		DisableColors()
	}
}

// DisableColors disables all color output.
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output.
func EnableColors() {
	color.NoColor = false
}

// IsColorEnabled returns whether colors are currently enabled.
func IsColorEnabled() bool {
	return !color.NoColor
}
