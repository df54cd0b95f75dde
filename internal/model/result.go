package model

import (
	"fmt"
	"strings"
	"time"
)

// SyncPair is a local path and the remote page it corresponds to.
type SyncPair struct {
	LocalPath  string
	RemoteName string
}

// SyncResult is the outcome of processing one pair during a run.
type SyncResult struct {
	LocalPath  string     `json:"local_path"`
	RemoteName string     `json:"remote_name"`
	Action     SyncAction `json:"action"`
	Success    bool       `json:"success"`

	// Error holds the failure message, or an explanatory note on success.
	Error string `json:"error,omitempty"`

	// Warnings carries lossy-conversion notices from the format converter.
	Warnings []string `json:"warnings,omitempty"`
}

// SyncReport collects every result of a single run.
type SyncReport struct {
	RunID      string       `json:"run_id"`
	Profile    string       `json:"profile"`
	DryRun     bool         `json:"dry_run"`
	Results    []SyncResult `json:"results"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// Add appends a result.
func (r *SyncReport) Add(res SyncResult) {
	r.Results = append(r.Results, res)
}

// Pushed returns PUSH results.
func (r *SyncReport) Pushed() []SyncResult {
	return r.filterByAction(ActionPush)
}

// Pulled returns PULL results.
func (r *SyncReport) Pulled() []SyncResult {
	return r.filterByAction(ActionPull)
}

// CreatedLocal returns CREATE_LOCAL results.
func (r *SyncReport) CreatedLocal() []SyncResult {
	return r.filterByAction(ActionCreateLocal)
}

// CreatedRemote returns CREATE_REMOTE results.
func (r *SyncReport) CreatedRemote() []SyncResult {
	return r.filterByAction(ActionCreateRemote)
}

// Skipped returns SKIP results, failed ones included.
func (r *SyncReport) Skipped() []SyncResult {
	return r.filterByAction(ActionSkip)
}

// Conflicts returns CONFLICT results.
func (r *SyncReport) Conflicts() []SyncResult {
	return r.filterByAction(ActionConflict)
}

// Errors returns every failed result regardless of action.
func (r *SyncReport) Errors() []SyncResult {
	var failed []SyncResult
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// ByAction returns results with the given action.
func (r *SyncReport) ByAction(action SyncAction) []SyncResult {
	return r.filterByAction(action)
}

func (r *SyncReport) filterByAction(action SyncAction) []SyncResult {
	var filtered []SyncResult
	for _, res := range r.Results {
		if res.Action == action {
			filtered = append(filtered, res)
		}
	}
	return filtered
}

// Success returns true if no result failed.
func (r *SyncReport) Success() bool {
	return len(r.Errors()) == 0
}

// Duration returns the wall-clock time of the run.
func (r *SyncReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary returns per-group counts, one per line.
func (r *SyncReport) Summary() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Sync report for profile '%s'", r.Profile))
	if r.DryRun {
		sb.WriteString(" (dry run)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Created local:  %d\n", len(r.CreatedLocal())))
	sb.WriteString(fmt.Sprintf("  Created remote: %d\n", len(r.CreatedRemote())))
	sb.WriteString(fmt.Sprintf("  Updated local:  %d\n", len(r.Pulled())))
	sb.WriteString(fmt.Sprintf("  Updated remote: %d\n", len(r.Pushed())))
	sb.WriteString(fmt.Sprintf("  Skipped:        %d\n", len(r.Skipped())))
	sb.WriteString(fmt.Sprintf("  Conflicts:      %d\n", len(r.Conflicts())))
	sb.WriteString(fmt.Sprintf("  Errors:         %d\n", len(r.Errors())))
	sb.WriteString(fmt.Sprintf("  Total:          %d", len(r.Results)))

	return sb.String()
}
