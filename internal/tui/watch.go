// Package tui implements the read-only watch mode: a terminal view of one
// run's story queue and progress log, refreshed while the orchestrator (or
// the agents it drives) mutates them out-of-band.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"storyloop/internal/loop"
	"storyloop/internal/story"
)

const refreshInterval = 2 * time.Second

// Styles for the watch view.
type Styles struct {
	Title   lipgloss.Style
	Passed  lipgloss.Style
	Pending lipgloss.Style
	Active  lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
}

// DefaultStyles returns the default watch styles.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(loop.ColorPrimary)),
		Passed:  lipgloss.NewStyle().Foreground(lipgloss.Color(loop.ColorSuccess)),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color(loop.ColorMuted)),
		Active:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(loop.ColorWarning)),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color(loop.ColorMuted)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(loop.ColorError)),
	}
}

type tickMsg time.Time

// snapshotMsg carries one re-read of the run state and progress log.
type snapshotMsg struct {
	run      *story.Run
	active   string
	progress string
	err      error
}

// Model is the Bubble Tea model for watch mode.
type Model struct {
	workDir string
	store   *story.Store
	markers *loop.Markers
	styles  Styles

	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	run      *story.Run
	active   string
	progress string
	err      error
	width    int
	height   int
}

// NewModel creates a watch model for the run at runDir, with markers read
// from workDir.
func NewModel(workDir, runDir string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		workDir: workDir,
		store:   story.NewStore(runDir),
		markers: &loop.Markers{Dir: workDir},
		styles:  DefaultStyles(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.snapshot, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// snapshot re-reads everything from disk. The watch view never caches; the
// orchestrator and reviewer own these files.
func (m Model) snapshot() tea.Msg {
	run, err := m.store.Load()
	if err != nil {
		return snapshotMsg{err: err}
	}
	active, _ := m.markers.ActiveStory()
	var progress string
	if data, err := os.ReadFile(m.store.ProgressPath()); err == nil {
		progress = string(data)
	}
	return snapshotMsg{run: run, active: active, progress: progress}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, m.snapshot
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.snapshot, tick())

	case snapshotMsg:
		m.run = msg.run
		m.active = msg.active
		m.progress = msg.progress
		m.err = msg.err
		if m.ready {
			m.viewport.SetContent(m.progress)
			m.viewport.GotoBottom()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) resizeViewport() {
	storyLines := 0
	if m.run != nil {
		storyLines = len(m.run.Stories)
	}
	// Header + story list + footer.
	h := m.height - storyLines - 4
	if h < 5 {
		h = 5
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.viewport.SetContent(m.progress)
		m.ready = true
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = h
}

// View implements tea.Model.
func (m Model) View() string {
	if m.err != nil {
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)) + "\n" +
			m.styles.Muted.Render("Press q to quit")
	}
	if m.run == nil {
		return m.spinner.View() + " loading run state..."
	}

	var b strings.Builder

	remaining := m.run.RemainingCount()
	title := fmt.Sprintf("%s (%d/%d passed)", m.run.Project, len(m.run.Stories)-remaining, len(m.run.Stories))
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n")

	for _, st := range m.run.Stories {
		b.WriteString(m.storyLine(st))
		b.WriteString("\n")
	}

	if m.ready {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}

	hint := "q: quit  r: refresh"
	if remaining > 0 && m.active != "" {
		hint = m.spinner.View() + " working  " + hint
	}
	b.WriteString(m.styles.Muted.Render(hint))

	return b.String()
}

func (m Model) storyLine(st story.Story) string {
	switch {
	case st.Passes:
		return m.styles.Passed.Render(fmt.Sprintf("  ✓ %s %s", st.ID, st.Title))
	case st.ID == m.active:
		return m.styles.Active.Render(fmt.Sprintf("  ● %s %s", st.ID, st.Title))
	default:
		return m.styles.Pending.Render(fmt.Sprintf("  ○ %s %s", st.ID, st.Title))
	}
}

// Watch runs the watch TUI until the user quits.
func Watch(workDir, runDir string) error {
	p := tea.NewProgram(NewModel(workDir, runDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
