package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/klauern/docsync/internal/model"
)

func sampleConflict() *model.ConflictInfo {
	return &model.ConflictInfo{
		LocalPath:  "guide.md",
		RemoteName: "Docs/guide",
		Action:     model.ActionConflict,
		Local:      "intro\nlocal edit\n",
		Remote:     "intro\nremote edit\n",
	}
}

func keyRunes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestConflictModel_Choices(t *testing.T) {
	tests := map[string]struct {
		msg     tea.KeyMsg
		want    model.Resolution
		aborted bool
	}{
		"local":  {msg: keyRunes('l'), want: model.ResolutionLocal},
		"remote": {msg: keyRunes('r'), want: model.ResolutionRemote},
		"skip":   {msg: keyRunes('s'), want: model.ResolutionSkip},
		"esc":    {msg: tea.KeyMsg{Type: tea.KeyEsc}, want: model.ResolutionSkip},
		"quit":   {msg: keyRunes('q'), want: model.ResolutionSkip, aborted: true},
		"ctrl+c": {msg: tea.KeyMsg{Type: tea.KeyCtrlC}, want: model.ResolutionSkip, aborted: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m := NewConflictModel(sampleConflict())
			next, cmd := m.Update(tt.msg)
			updated := next.(ConflictModel)

			if updated.Result() != tt.want {
				t.Errorf("Result() = %q, want %q", updated.Result(), tt.want)
			}
			if updated.Aborted() != tt.aborted {
				t.Errorf("Aborted() = %v, want %v", updated.Aborted(), tt.aborted)
			}
			if !updated.quitting || cmd == nil {
				t.Error("expected quit command after a choice")
			}
		})
	}
}

func TestConflictModel_HelpToggle(t *testing.T) {
	m := NewConflictModel(sampleConflict())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	next, cmd := next.Update(keyRunes('?'))
	updated := next.(ConflictModel)

	if !updated.showHelp {
		t.Error("expected help to be shown after '?'")
	}
	if cmd != nil {
		t.Error("help toggle should not quit")
	}
	if !strings.Contains(updated.View(), "Keep the wiki page") {
		t.Error("View() missing full help")
	}
}

func TestConflictModel_View(t *testing.T) {
	m := NewConflictModel(sampleConflict())
	if got := m.View(); got != "Loading..." {
		t.Errorf("View() before sizing = %q, want Loading...", got)
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	view := next.(ConflictModel).View()
	for _, want := range []string{"guide.md <-> Docs/guide", "local edit", "remote edit", "l local"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestPrompter_SkipsAfterAbort(t *testing.T) {
	calls := 0
	p := &Prompter{run: func(_ context.Context, info *model.ConflictInfo) (ConflictModel, error) {
		calls++
		m := NewConflictModel(info)
		next, _ := m.Update(keyRunes('q'))
		return next.(ConflictModel), nil
	}}

	for i := 0; i < 3; i++ {
		res, err := p.Choose(context.Background(), sampleConflict())
		if err != nil {
			t.Fatalf("Choose() error = %v", err)
		}
		if res != model.ResolutionSkip {
			t.Errorf("Choose() = %q, want skip", res)
		}
	}
	if calls != 1 {
		t.Errorf("chooser ran %d times, want 1", calls)
	}
}

func TestTruncateText(t *testing.T) {
	tests := map[string]struct {
		text  string
		width int
		want  string
	}{
		"fits":     {text: "short", width: 10, want: "short"},
		"ellipsis": {text: "a long page name", width: 8, want: "a lon..."},
		"tiny":     {text: "abcdef", width: 2, want: "ab"},
		"zero":     {text: "abc", width: 0, want: ""},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := truncateText(tt.text, tt.width); got != tt.want {
				t.Errorf("truncateText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}
