package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/klauern/docsync/internal/state"
	"github.com/klauern/docsync/internal/ui"
)

// Status summarizes a profile and its persisted state.
type Status struct {
	Profile     string     `json:"profile"`
	Direction   string     `json:"direction"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	Tracked     int        `json:"tracked_files"`
	Conflicted  []string   `json:"conflicted"`
}

// StatusFromState fills the state-derived fields of a Status.
func StatusFromState(st *state.State) Status {
	conflicted := st.ConflictedPaths()
	if conflicted == nil {
		conflicted = []string{}
	}
	s := Status{
		Profile:    st.Profile,
		Tracked:    len(st.Entries),
		Conflicted: conflicted,
	}
	if t := st.LastSyncTime(); !t.IsZero() {
		s.LastSync = &t
	}
	return s
}

// FormatStatus renders s with the last sync relative to now.
func FormatStatus(s Status, now time.Time) string {
	lastSync := "never"
	if s.LastSync != nil {
		lastSync = fmt.Sprintf("%s (%s)", s.LastSync.UTC().Format(time.RFC3339),
			humanize.RelTime(*s.LastSync, now, "ago", "from now"))
	}

	var sb strings.Builder
	sb.WriteString(ui.Header(fmt.Sprintf("Sync status for '%s'", s.Profile)) + "\n")
	fmt.Fprintf(&sb, "  Direction:     %s\n", s.Direction)
	fmt.Fprintf(&sb, "  Source:        %s\n", s.Source)
	fmt.Fprintf(&sb, "  Destination:   %s\n", s.Destination)
	fmt.Fprintf(&sb, "  Last sync:     %s\n", lastSync)
	fmt.Fprintf(&sb, "  Tracked files: %s\n", humanize.Comma(int64(s.Tracked)))
	fmt.Fprintf(&sb, "  Conflicts:     %d\n", len(s.Conflicted))
	for _, p := range s.Conflicted {
		sb.WriteString("    " + ui.StatusWarning(p) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// StatusJSON renders s as indented JSON.
func StatusJSON(s Status) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return out, nil
}
