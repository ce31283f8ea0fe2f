// Package tui provides the live watch view for ferry: collection
// counts and the active task list, refreshed on a tick while the queue
// engine runs in the background.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/ferry/internal/manager"
	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/pkg/models"
)

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// snapshotMsg carries freshly loaded store state into the model.
type snapshotMsg struct {
	counts map[models.Collection]int
	active []models.Task
	err    error
}

// Model is the bubbletea model for the watch view.
type Model struct {
	mgr      *manager.Manager
	store    store.Store
	interval time.Duration

	spinner  spinner.Model
	counts   map[models.Collection]int
	active   []models.Task
	err      error
	width    int
	quitting bool

	titleStyle   lipgloss.Style
	headerStyle  lipgloss.Style
	countStyle   lipgloss.Style
	taskStyle    lipgloss.Style
	doneStyle    lipgloss.Style
	pendingStyle lipgloss.Style
	errStyle     lipgloss.Style
	helpStyle    lipgloss.Style
}

// New creates a watch model refreshing at the given interval.
func New(mgr *manager.Manager, s store.Store, interval time.Duration) *Model {
	if interval <= 0 {
		interval = time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		mgr:      mgr,
		store:    s,
		interval: interval,
		spinner:  sp,
		counts:   make(map[models.Collection]int),

		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1),

		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("75")),

		countStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		taskStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),

		doneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")), // Dark green

		pendingStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")), // Gray

		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")), // Red

		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refresh, m.tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.refresh
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		return m, tea.Batch(m.refresh, m.tick())

	case snapshotMsg:
		m.counts = msg.counts
		m.active = msg.active
		m.err = msg.err

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(m.titleStyle.Render("ferry watch"))
	b.WriteString("\n\n")

	b.WriteString(m.headerStyle.Render("Collections"))
	b.WriteString("\n")
	for _, c := range models.Collections {
		line := fmt.Sprintf("  %-12s %d", c, m.counts[c])
		b.WriteString(m.countStyle.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render("Active tasks"))
	b.WriteString("\n")
	if len(m.active) == 0 {
		b.WriteString(m.pendingStyle.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, t := range m.active {
		done, total := todoProgress(t)
		marker := m.pendingStyle.Render("○")
		if done == total && total > 0 {
			marker = m.doneStyle.Render("●")
		}
		line := fmt.Sprintf("  %s %s [%d/%d] %s", marker, shortID(t.ID), done, total, t.Description)
		b.WriteString(m.taskStyle.Render(truncate(line, m.width)))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(m.errStyle.Render(fmt.Sprintf("error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render("r refresh · q quit"))
	b.WriteString("\n")

	return b.String()
}

// refresh loads current store state off the Update loop.
func (m *Model) refresh() tea.Msg {
	counts := make(map[models.Collection]int, len(models.Collections))
	for _, c := range models.Collections {
		tasks, err := m.store.Load(c)
		if err != nil {
			return snapshotMsg{counts: m.counts, active: m.active, err: err}
		}
		counts[c] = len(tasks)
	}

	active, err := m.mgr.ListActive()
	if err != nil {
		return snapshotMsg{counts: counts, active: m.active, err: err}
	}

	return snapshotMsg{counts: counts, active: active}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Run starts the watch view and blocks until the user quits.
func Run(mgr *manager.Manager, s store.Store, interval time.Duration) error {
	p := tea.NewProgram(New(mgr, s, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// todoProgress counts completed todos against the total.
func todoProgress(t models.Task) (done, total int) {
	for _, td := range t.Todos {
		if td.Done {
			done++
		}
	}
	return done, len(t.Todos)
}

// shortID trims a uuid down to a display prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate clips a line to the terminal width. Width zero means the
// terminal size is not yet known; leave the line alone.
func truncate(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}
