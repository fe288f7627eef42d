// Package tui is an interactive front end over the daemon API. It
// only reads snapshots and issues apply/stop requests; process
// handles never leave the supervisor.
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loykin/wpe/internal/server"
	"github.com/loykin/wpe/internal/supervisor"
)

// Controller defines the subset of the daemon client the TUI needs.
type Controller interface {
	Status() (server.StatusResponse, error)
	Apply() (server.ApplyResponse, error)
	StopAll() (server.StopResponse, error)
}

var (
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
)

// Model represents the Bubble Tea state.
type Model struct {
	controller Controller

	list      list.Model
	statusMsg string
	err       error

	width  int
	height int

	lastUpdated time.Time
}

type monitorItem struct {
	monitor string
	state   supervisor.RunState
}

func (i monitorItem) Title() string {
	if i.state.Running {
		return runningStyle.Render("● ") + i.monitor
	}
	return stoppedStyle.Render("○ ") + i.monitor
}

func (i monitorItem) Description() string {
	if !i.state.Running {
		return "stopped"
	}
	return fmt.Sprintf("pid %d since %s", i.state.PID, i.state.SpawnedAt.Format("15:04:05"))
}

func (i monitorItem) FilterValue() string { return i.monitor }

// New constructs a TUI model with default styles.
func New(ctrl Controller) *Model {
	delegate := list.NewDefaultDelegate()
	lst := list.New([]list.Item{}, delegate, 0, 0)
	lst.Title = "Wallpapers"
	lst.SetShowHelp(false)
	lst.SetFilteringEnabled(false)
	lst.DisableQuitKeybindings()

	return &Model{
		controller: ctrl,
		list:       lst,
		statusMsg:  "Loading status…",
	}
}

// Run spins up the Bubble Tea program.
func Run(ctrl Controller) error {
	prog := tea.NewProgram(New(ctrl), tea.WithAltScreen())
	_, err := prog.Run()
	return err
}

type statusMsg struct{ resp server.StatusResponse }
type applyMsg struct{ resp server.ApplyResponse }
type stopMsg struct{ resp server.StopResponse }
type errMsg struct{ err error }
type tickMsg time.Time

func statusCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		resp, err := ctrl.Status()
		if err != nil {
			return errMsg{err}
		}
		return statusMsg{resp}
	}
}

func applyCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		resp, err := ctrl.Apply()
		if err != nil {
			return errMsg{err}
		}
		return applyMsg{resp}
	}
}

func stopCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		resp, err := ctrl.StopAll()
		if err != nil {
			return errMsg{err}
		}
		return stopMsg{resp}
	}
}

func tick() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(statusCmd(m.controller), tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.height > 4 {
			m.list.SetSize(msg.Width, msg.Height-4)
		}

	case statusMsg:
		m.err = nil
		m.lastUpdated = time.Now()
		m.setItems(msg.resp.Monitors)
		m.statusMsg = "a apply · s stop all · r refresh · q quit"

	case applyMsg:
		m.statusMsg = summarizeApply(msg.resp)
		return m, statusCmd(m.controller)

	case stopMsg:
		if len(msg.resp.Failures) > 0 {
			m.statusMsg = fmt.Sprintf("Stopped with %d failure(s)", len(msg.resp.Failures))
		} else {
			m.statusMsg = "All renderers stopped."
		}
		return m, statusCmd(m.controller)

	case errMsg:
		m.err = msg.err

	case tickMsg:
		return m, tea.Batch(statusCmd(m.controller), tick())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.statusMsg = "Refreshing…"
			return m, statusCmd(m.controller)
		case "a":
			m.statusMsg = "Applying configuration…"
			return m, applyCmd(m.controller)
		case "s":
			m.statusMsg = "Stopping all renderers…"
			return m, stopCmd(m.controller)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	footer := m.statusMsg
	if m.err != nil {
		footer = "Error: " + m.err.Error()
	}
	if !m.lastUpdated.IsZero() {
		footer += statusStyle.Render(fmt.Sprintf("(updated %s)", m.lastUpdated.Format("15:04:05")))
	}
	return m.list.View() + "\n" + statusStyle.Render(footer)
}

func (m *Model) setItems(monitors map[string]supervisor.RunState) {
	ids := make([]string, 0, len(monitors))
	for id := range monitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]list.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, monitorItem{monitor: id, state: monitors[id]})
	}
	m.list.SetItems(items)
}

func summarizeApply(resp server.ApplyResponse) string {
	var started, restarted, stopped, unchanged, failed int
	for _, r := range resp.Results {
		switch r.Outcome {
		case supervisor.OutcomeStarted:
			started++
		case supervisor.OutcomeRestarted:
			restarted++
		case supervisor.OutcomeStopped:
			stopped++
		case supervisor.OutcomeUnchanged:
			unchanged++
		case supervisor.OutcomeFailed:
			failed++
		}
	}
	s := fmt.Sprintf("Applied: %d started, %d restarted, %d stopped, %d unchanged, %d failed",
		started, restarted, stopped, unchanged, failed)
	if n := len(resp.ConfigErrors); n > 0 {
		s += fmt.Sprintf(" · %d config error(s)", n)
	}
	return s
}
