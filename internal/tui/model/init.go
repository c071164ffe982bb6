package model

import (
	"time"

	"clusterdash/internal/session"
	"clusterdash/pkg/logging"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultKeyMap returns a KeyMap with the default bindings used by the TUI.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "select previous node"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "select next node"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next log tab"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous log tab"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run command on node"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close/back"),
		),
		Left: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←", "previous runtime"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next runtime"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "filter logs"),
		),
		Resync: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "resync topology"),
		),
		CopyLogs: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy logs"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Tab, k.Filter, k.Resync, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Tab, k.ShiftTab, k.Filter},
		{k.Resync, k.CopyLogs},
		{k.Left, k.Right, k.Esc},
		{k.Help, k.Quit},
	}
}

// InitializeModel builds the dashboard model over a started session.
func InitializeModel(s *session.Session, debugMode bool, logChannel <-chan logging.LogEntry) *Model {
	filter := textinput.New()
	filter.Placeholder = "substring, case-sensitive"
	filter.Prompt = "/ "
	filter.CharLimit = 256

	command := textinput.New()
	command.Placeholder = "command"
	command.CharLimit = 1024

	repeat := textinput.New()
	repeat.Placeholder = "0"
	repeat.CharLimit = 6
	repeat.Validate = digitsOnly

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	t := table.New(table.WithFocused(true))
	cols := s.Table.Columns()
	tableCols := make([]table.Column, len(cols))
	for i, c := range cols {
		tableCols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	t.SetColumns(tableCols)

	return &Model{
		CurrentAppMode: ModeInitializing,
		LastAppMode:    ModeMainDashboard,
		DebugMode:      debugMode,
		Session:        s,
		Table:          t,
		FilterInput:    filter,
		LogViewport:    viewport.New(0, 0),
		CommandInput:   command,
		RepeatInput:    repeat,
		Spinner:        sp,
		Keys:           DefaultKeyMap(),
		Help:           help.New(),
		ActivityLog:    make([]string, 0),
		LogChannel:     logChannel,
		Now:            time.Now(),
	}
}

// Init starts the readers and tickers the dashboard lives on.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.Spinner.Tick,
		ListenForTasksCmd(m.Session),
		ClockTickCmd(),
	}
	if m.LogChannel != nil {
		cmds = append(cmds, ListenForLogEntriesCmd(m.LogChannel))
	}
	return tea.Batch(cmds...)
}

func digitsOnly(s string) error {
	for _, r := range s {
		if r < '0' || r > '9' {
			return errNotANumber
		}
	}
	return nil
}
