package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/klauern/docsync/internal/model"
	"github.com/klauern/docsync/internal/report"
)

// conflictKeyMap defines the key bindings for the conflict chooser.
type conflictKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Local  key.Binding
	Remote key.Binding
	Skip   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultConflictKeyMap() conflictKeyMap {
	return conflictKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Local: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "keep local"),
		),
		Remote: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "keep remote"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s", "esc"),
			key.WithHelp("s/esc", "skip"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

var conflictStyles = struct {
	Title      lipgloss.Style
	Help       lipgloss.Style
	Status     lipgloss.Style
	Header     lipgloss.Style
	Added      lipgloss.Style
	Removed    lipgloss.Style
	SectionHdr lipgloss.Style
	Info       lipgloss.Style
	Warning    lipgloss.Style
}{
	Title:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1),
	Help:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Status:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
	Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")),
	Added:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	Removed:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	SectionHdr: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5")),
	Info:       lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true),
	Warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3")),
}

// ConflictModel is the BubbleTea model for settling one conflict.
type ConflictModel struct {
	viewport viewport.Model
	info     *model.ConflictInfo
	keys     conflictKeyMap
	result   model.Resolution
	aborted  bool
	showHelp bool
	width    int
	quitting bool
	ready    bool
}

// NewConflictModel creates a chooser for info. Until a key is pressed the
// result is skip.
func NewConflictModel(info *model.ConflictInfo) ConflictModel {
	return ConflictModel{
		info:   info,
		keys:   defaultConflictKeyMap(),
		result: model.ResolutionSkip,
	}
}

// Init implements tea.Model.
func (m ConflictModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ConflictModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

		headerHeight := 2
		footerHeight := 3
		viewportHeight := max(msg.Height-headerHeight-footerHeight, 5)

		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, viewportHeight)
			m.viewport.SetContent(m.buildContent())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = viewportHeight
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.result = model.ResolutionSkip
			m.aborted = true
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, m.keys.Local):
			return m.choose(model.ResolutionLocal)

		case key.Matches(msg, m.keys.Remote):
			return m.choose(model.ResolutionRemote)

		case key.Matches(msg, m.keys.Skip):
			return m.choose(model.ResolutionSkip)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ConflictModel) choose(res model.Resolution) (tea.Model, tea.Cmd) {
	m.result = res
	m.quitting = true
	return m, tea.Quit
}

func (m ConflictModel) buildContent() string {
	return styleDiff(report.FormatConflictDiff(m.info))
}

// View implements tea.Model.
func (m ConflictModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder

	title := fmt.Sprintf("Conflict: %s <-> %s", m.info.LocalPath, m.info.RemoteName)
	b.WriteString(conflictStyles.Title.Render(truncateText(title, max(m.width-2, 10))))
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	status := fmt.Sprintf("Scroll: %d%% • %s", int(m.viewport.ScrollPercent()*100), m.info.Action)
	b.WriteString(conflictStyles.Status.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString("\n")
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderShortHelp())
	}

	return b.String()
}

func (m ConflictModel) renderShortHelp() string {
	keys := []string{
		"↑/↓ scroll",
		"l local",
		"r remote",
		"s skip",
		"? help",
		"q quit",
	}
	return conflictStyles.Help.Render(strings.Join(keys, " • "))
}

func (m ConflictModel) renderFullHelp() string {
	help := `Navigation:
  ↑/k      Scroll up
  ↓/j      Scroll down
  PgUp     Page up
  PgDown   Page down

Resolution:
  l        Keep the local file and push it
  r        Keep the wiki page and pull it
  s/Esc    Leave both sides alone for now

General:
  ?        Toggle full help
  q        Skip this and every remaining conflict`
	return conflictStyles.Help.Render(help)
}

// Result returns the chosen resolution.
func (m ConflictModel) Result() model.Resolution {
	return m.result
}

// Aborted reports whether the user quit rather than choosing.
func (m ConflictModel) Aborted() bool {
	return m.aborted
}

// RunConflict shows info full-screen and returns the final model.
func RunConflict(ctx context.Context, info *model.ConflictInfo) (ConflictModel, error) {
	finalModel, err := Run(ctx, NewConflictModel(info))
	if err != nil {
		return ConflictModel{}, err
	}
	if m, ok := finalModel.(ConflictModel); ok {
		return m, nil
	}
	return NewConflictModel(info), nil
}

// Prompter asks about each conflict with the full-screen chooser. Once the
// user quits, every later conflict is skipped without asking.
type Prompter struct {
	aborted bool
	run     func(context.Context, *model.ConflictInfo) (ConflictModel, error)
}

// NewPrompter returns a Prompter backed by RunConflict.
func NewPrompter() *Prompter {
	return &Prompter{run: RunConflict}
}

// Choose implements sync.Prompter.
func (p *Prompter) Choose(ctx context.Context, info *model.ConflictInfo) (model.Resolution, error) {
	if p.aborted {
		return model.ResolutionSkip, nil
	}
	m, err := p.run(ctx, info)
	if err != nil {
		return "", err
	}
	if m.Aborted() {
		p.aborted = true
	}
	return m.Result(), nil
}
