package controller

import (
	"strings"

	"clusterdash/internal/tui/model"
	"clusterdash/internal/tui/view"
	"clusterdash/pkg/logging"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Update is the controller entry point. Session tasks run here, on the
// bubbletea loop, so every component is mutated from a single goroutine.
func Update(msg tea.Msg, m *model.Model) (*model.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		var cmd tea.Cmd
		m, cmd = handleWindowSizeMsg(m, msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = handleKeyMsg(m, msg)
		cmds = append(cmds, cmd)

	case model.TaskMsg:
		msg.Task()
		cmds = append(cmds, model.ListenForTasksCmd(m.Session))

	case model.SessionClosedMsg:
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Session closed"
		return m, tea.Quit

	case model.NewLogEntryMsg:
		m = handleNewLogEntry(m, msg)
		cmds = append(cmds, model.ListenForLogEntriesCmd(m.LogChannel))

	case model.ClearStatusBarMsg:
		m.StatusBarMessage = ""
		m.StatusBarClearCancel = nil

	case model.ClockTickMsg:
		m.Now = msg.At
		cmds = append(cmds, model.ClockTickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.CurrentAppMode == model.ModeQuitting {
		return m, tea.Batch(append(cmds, tea.Quit)...)
	}

	syncFromSession(m)
	return m, tea.Batch(cmds...)
}

func handleNewLogEntry(m *model.Model, msg model.NewLogEntryMsg) *model.Model {
	entry := msg.Entry
	if entry.Level >= logging.LevelInfo || m.DebugMode {
		model.AddRawLineToActivityLog(m, entry.String())
	}
	return m
}

// syncFromSession projects session state onto the widgets.
func syncFromSession(m *model.Model) {
	if m.Session == nil {
		return
	}
	syncTable(m)
	resize(m)
	syncLogs(m)
	syncModes(m)
}

func syncTable(m *model.Model) {
	rendered := m.Session.Table.Rows()
	rows := make([]table.Row, len(rendered))
	for i, r := range rendered {
		rows[i] = table.Row(r)
	}
	m.Table.SetRows(rows)
	if len(rows) > 0 && m.Table.Cursor() >= len(rows) {
		m.Table.SetCursor(len(rows) - 1)
	}
}

func syncLogs(m *model.Model) {
	lines := m.Session.LogList.Lines()
	width := m.LogViewport.Width

	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(view.TruncateLine(line, width))
	}

	follow := m.LogViewport.AtBottom() || m.LastLogLines <= 0
	m.LogViewport.SetContent(b.String())
	if follow {
		m.LogViewport.GotoBottom()
	}
	m.LastLogLines = len(lines)
}

func syncModes(m *model.Model) {
	if _, ok := m.Session.Notice(); ok && m.CurrentAppMode != model.ModeNotice {
		m.EnterMode(model.ModeNotice)
		return
	}
	if m.CurrentAppMode == model.ModeCommandDialog && !m.Session.Dialog.IsOpen() {
		closeDialogInputs(m)
		m.LeaveOverlay()
	}
}
