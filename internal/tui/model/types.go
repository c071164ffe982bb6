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
)

// AppMode represents the current mode of the application
type AppMode int

const (
	ModeInitializing AppMode = iota
	ModeMainDashboard
	ModeFilterInput
	ModeCommandDialog
	ModeNotice
	ModeHelpOverlay
	ModeQuitting
)

// String provides a human-readable representation of the AppMode.
func (m AppMode) String() string {
	switch m {
	case ModeInitializing:
		return "Initializing"
	case ModeMainDashboard:
		return "MainDashboard"
	case ModeFilterInput:
		return "FilterInput"
	case ModeCommandDialog:
		return "CommandDialog"
	case ModeNotice:
		return "Notice"
	case ModeHelpOverlay:
		return "HelpOverlay"
	case ModeQuitting:
		return "Quitting"
	default:
		return "Unknown"
	}
}

// MessageType represents the type of status bar message
type MessageType int

const (
	StatusBarInfo MessageType = iota
	StatusBarSuccess
	StatusBarError
	StatusBarWarning
)

// DialogField is the focused input of the command dialog.
type DialogField int

const (
	DialogFieldCommand DialogField = iota
	DialogFieldRepeat
)

// Constants for UI
const (
	MaxActivityLogLines = 500
	ActivityPaneLines   = 4
)

// KeyMap defines all the key bindings for the application
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Enter    key.Binding
	Esc      key.Binding
	Left     key.Binding
	Right    key.Binding
	Filter   key.Binding
	Resync   key.Binding
	CopyLogs key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// Model is the dashboard state. All session state lives in Session; the
// model only holds widgets and what the widgets were last synced from.
type Model struct {
	// Terminal dimensions
	Width  int
	Height int

	CurrentAppMode  AppMode
	LastAppMode     AppMode
	DebugMode       bool
	QuittingMessage string

	Session *session.Session

	// Widgets
	Table         table.Model
	FilterInput   textinput.Model
	LogViewport   viewport.Model
	CommandInput  textinput.Model
	RepeatInput   textinput.Model
	DialogFocus   DialogField
	Spinner       spinner.Model
	Keys          KeyMap
	Help          help.Model
	LastLogLines  int

	// UI State & Output
	ActivityLog          []string
	StatusBarMessage     string
	StatusBarMessageType MessageType
	StatusBarClearCancel chan struct{}
	Now                  time.Time

	// Logging
	LogChannel <-chan logging.LogEntry
}

// SetStatusMessage shows message in the status bar and clears it after clearAfter.
func (m *Model) SetStatusMessage(message string, msgType MessageType, clearAfter time.Duration) tea.Cmd {
	m.StatusBarMessage = message
	m.StatusBarMessageType = msgType

	if m.StatusBarClearCancel != nil {
		close(m.StatusBarClearCancel)
	}

	m.StatusBarClearCancel = make(chan struct{})
	captured := m.StatusBarClearCancel

	return tea.Tick(clearAfter, func(t time.Time) tea.Msg {
		select {
		case <-captured:
			return nil
		default:
			return ClearStatusBarMsg{}
		}
	})
}

// EnterMode switches mode, remembering the previous one for overlays.
func (m *Model) EnterMode(mode AppMode) {
	if m.CurrentAppMode == mode {
		return
	}
	m.LastAppMode = m.CurrentAppMode
	m.CurrentAppMode = mode
}

// LeaveOverlay returns to the mode active before the overlay.
func (m *Model) LeaveOverlay() {
	back := m.LastAppMode
	if back == m.CurrentAppMode || back == ModeInitializing || back == ModeNotice || back == ModeHelpOverlay {
		back = ModeMainDashboard
	}
	m.CurrentAppMode = back
	m.LastAppMode = ModeMainDashboard
}
