// Package report renders sync reports, dry-run previews, conflict diffs
// and profile status for people and for machines.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/ui"
)

// previewLines caps the merge preview in a conflict diff.
const previewLines = 20

// FormatReport renders a finished run. Sections only appear when they
// have results; skipped pairs are counted, not listed.
func FormatReport(r *model.SyncReport) string {
	var sb strings.Builder

	header := fmt.Sprintf("Sync report for profile '%s'", r.Profile)
	if r.DryRun {
		header += " (dry run)"
	}
	sb.WriteString(ui.Header(header) + "\n")
	fmt.Fprintf(&sb, "Started:  %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	if !r.FinishedAt.IsZero() {
		fmt.Fprintf(&sb, "Duration: %s\n", r.Duration().Round(time.Millisecond))
	}
	sb.WriteString("\n")

	pushed, pulled := succeeded(r.Pushed()), succeeded(r.Pulled())
	createdRemote, createdLocal := succeeded(r.CreatedRemote()), succeeded(r.CreatedLocal())
	conflicts := succeeded(r.Conflicts())
	fmt.Fprintf(&sb, "Synced %d files: %d pushed, %d pulled, %d created, %d conflicts, %d errors\n\n",
		len(r.Results), len(pushed), len(pulled), len(createdRemote)+len(createdLocal), len(conflicts), len(r.Errors()))

	section(&sb, "Pushed to wiki:", pushed, pushLine)
	section(&sb, "Pulled from wiki:", pulled, pullLine)
	section(&sb, "Created (remote):", createdRemote, pushLine)
	section(&sb, "Created (local):", createdLocal, pullLine)
	section(&sb, "Conflicts:", conflicts, func(res model.SyncResult) string {
		desc := res.Error
		if desc == "" {
			desc = "both sides changed"
		}
		return fmt.Sprintf("%s <-> %s: %s", res.LocalPath, res.RemoteName, desc)
	})
	section(&sb, "Errors:", r.Errors(), func(res model.SyncResult) string {
		if res.LocalPath == "" {
			return ui.Error(res.Error)
		}
		return fmt.Sprintf("%s: %s", res.LocalPath, ui.Error(res.Error))
	})
	section(&sb, "Warnings:", withWarnings(r.Results), func(res model.SyncResult) string {
		return fmt.Sprintf("%s: %s", res.LocalPath, ui.Warning(strings.Join(res.Warnings, "; ")))
	})

	if n := len(r.Skipped()); n > 0 {
		fmt.Fprintf(&sb, "Skipped: %d files\n", n)
	}

	return strings.TrimRight(sb.String(), "\n")
}

// dryRunOrder is the display order of the preview; SKIP is only counted.
var dryRunOrder = []model.SyncAction{
	model.ActionPush,
	model.ActionPull,
	model.ActionCreateRemote,
	model.ActionCreateLocal,
	model.ActionDeleteRemote,
	model.ActionDeleteLocal,
	model.ActionConflict,
}

// FormatDryRun renders the actions a run would take, grouped by action.
func FormatDryRun(r *model.SyncReport) string {
	var sb strings.Builder
	sb.WriteString(ui.Warning("DRY RUN -- No changes will be made") + "\n")
	fmt.Fprintf(&sb, "Profile: %s\n\n", r.Profile)

	changes := 0
	for _, action := range dryRunOrder {
		results := r.ByAction(action)
		if len(results) == 0 {
			continue
		}
		changes += len(results)
		fmt.Fprintf(&sb, "[%s] (%d)\n", actionLabel(action), len(results))
		for _, res := range results {
			fmt.Fprintf(&sb, "  %s <-> %s\n", res.LocalPath, res.RemoteName)
		}
		sb.WriteString("\n")
	}

	if n := len(r.Skipped()); n > 0 {
		fmt.Fprintf(&sb, "Skipped: %d files (unchanged)\n\n", n)
	}
	if failed := r.Errors(); len(failed) > 0 {
		sb.WriteString("Errors:\n")
		for _, res := range failed {
			fmt.Fprintf(&sb, "  %s\n", ui.Result(res))
		}
		sb.WriteString("\n")
	}
	if changes == 0 {
		sb.WriteString("No changes needed.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Counts is the per-group tally included in JSON output.
type Counts struct {
	Total         int `json:"total"`
	Pushed        int `json:"pushed"`
	Pulled        int `json:"pulled"`
	CreatedRemote int `json:"created_remote"`
	CreatedLocal  int `json:"created_local"`
	Conflicts     int `json:"conflicts"`
	Errors        int `json:"errors"`
	Skipped       int `json:"skipped"`
}

type jsonReport struct {
	RunID      string             `json:"run_id"`
	Profile    string             `json:"profile"`
	DryRun     bool               `json:"dry_run"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Counts     Counts             `json:"counts"`
	Results    []model.SyncResult `json:"results"`
}

// CountsOf tallies a report.
func CountsOf(r *model.SyncReport) Counts {
	return Counts{
		Total:         len(r.Results),
		Pushed:        len(r.Pushed()),
		Pulled:        len(r.Pulled()),
		CreatedRemote: len(r.CreatedRemote()),
		CreatedLocal:  len(r.CreatedLocal()),
		Conflicts:     len(r.Conflicts()),
		Errors:        len(r.Errors()),
		Skipped:       len(r.Skipped()),
	}
}

// JSON renders the report with counts as indented JSON.
func JSON(r *model.SyncReport) ([]byte, error) {
	results := r.Results
	if results == nil {
		results = []model.SyncResult{}
	}
	out, err := json.MarshalIndent(jsonReport{
		RunID:      r.RunID,
		Profile:    r.Profile,
		DryRun:     r.DryRun,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Counts:     CountsOf(r),
		Results:    results,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return out, nil
}

func section(sb *strings.Builder, title string, results []model.SyncResult, line func(model.SyncResult) string) {
	if len(results) == 0 {
		return
	}
	sb.WriteString(ui.Bold(title) + "\n")
	for _, res := range results {
		sb.WriteString("  " + line(res) + "\n")
	}
	sb.WriteString("\n")
}

func pushLine(res model.SyncResult) string {
	return res.LocalPath + " -> " + res.RemoteName
}

func pullLine(res model.SyncResult) string {
	return res.RemoteName + " -> " + res.LocalPath
}

func succeeded(results []model.SyncResult) []model.SyncResult {
	var ok []model.SyncResult
	for _, res := range results {
		if res.Success {
			ok = append(ok, res)
		}
	}
	return ok
}

func withWarnings(results []model.SyncResult) []model.SyncResult {
	var out []model.SyncResult
	for _, res := range results {
		if len(res.Warnings) > 0 {
			out = append(out, res)
		}
	}
	return out
}

// actionLabel turns CREATE_REMOTE into "CREATE REMOTE".
func actionLabel(a model.SyncAction) string {
	return cases.Upper(language.Und).String(strings.ReplaceAll(a.String(), "_", " "))
}
