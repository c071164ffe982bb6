package controller

import (
	"strings"
	"time"

	"clusterdash/internal/eventbus"
	"clusterdash/internal/tui/model"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

const statusDuration = 3 * time.Second

// handleKeyMsg routes a key press by the current mode.
func handleKeyMsg(m *model.Model, keyMsg tea.KeyMsg) (*model.Model, tea.Cmd) {
	if keyMsg.String() == "ctrl+c" {
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Shutting down..."
		return m, nil
	}

	switch m.CurrentAppMode {
	case model.ModeNotice:
		return handleKeyMsgNotice(m, keyMsg)
	case model.ModeFilterInput:
		return handleKeyMsgFilterMode(m, keyMsg)
	case model.ModeCommandDialog:
		return handleKeyMsgDialogMode(m, keyMsg)
	case model.ModeHelpOverlay:
		if key.Matches(keyMsg, m.Keys.Esc) || key.Matches(keyMsg, m.Keys.Help) {
			m.LeaveOverlay()
		}
		return m, nil
	default:
		return handleKeyMsgGlobal(m, keyMsg)
	}
}

// handleKeyMsgGlobal processes key presses on the main dashboard.
func handleKeyMsgGlobal(m *model.Model, keyMsg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch {
	case key.Matches(keyMsg, m.Keys.Quit):
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Shutting down..."
		return m, nil

	case key.Matches(keyMsg, m.Keys.Help):
		m.EnterMode(model.ModeHelpOverlay)
		return m, nil

	case key.Matches(keyMsg, m.Keys.Enter):
		return executeOnSelected(m)

	case key.Matches(keyMsg, m.Keys.Tab):
		return m, selectTab(m, 1)

	case key.Matches(keyMsg, m.Keys.ShiftTab):
		return m, selectTab(m, -1)

	case key.Matches(keyMsg, m.Keys.Filter):
		m.EnterMode(model.ModeFilterInput)
		m.FilterInput.SetValue(m.Session.Filter())
		m.FilterInput.CursorEnd()
		return m, m.FilterInput.Focus()

	case key.Matches(keyMsg, m.Keys.Resync):
		publish(m, eventbus.TopicResync, eventbus.Interaction{Target: string(m.Session.Primary()), CurrentTarget: "header", Index: -1}, nil)
		return m, m.SetStatusMessage("Resync requested", model.StatusBarInfo, statusDuration)

	case key.Matches(keyMsg, m.Keys.CopyLogs):
		text := strings.Join(m.Session.LogList.Lines(), "\n")
		if err := clipboard.WriteAll(text); err != nil {
			LogError(controllerSubsystem, err, "Failed to copy logs")
			return m, m.SetStatusMessage("Copy logs failed", model.StatusBarError, statusDuration)
		}
		return m, m.SetStatusMessage("Logs copied to clipboard", model.StatusBarSuccess, statusDuration)

	case key.Matches(keyMsg, m.Keys.Up), key.Matches(keyMsg, m.Keys.Down):
		var cmd tea.Cmd
		m.Table, cmd = m.Table.Update(keyMsg)
		return m, cmd

	case keyMsg.String() == "pgup", keyMsg.String() == "pgdown", keyMsg.String() == "home", keyMsg.String() == "end":
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(keyMsg)
		return m, cmd
	}
	return m, nil
}

// executeOnSelected opens the command dialog for the node under the cursor.
func executeOnSelected(m *model.Model) (*model.Model, tea.Cmd) {
	nodes := m.Session.Nodes()
	idx := m.Table.Cursor()
	if idx < 0 || idx >= len(nodes) {
		return m, nil
	}
	ref := nodes[idx]
	publish(m, eventbus.TopicExecuteOnNode, eventbus.Interaction{
		Target:        string(ref.Node.Address()),
		CurrentTarget: "table",
		Index:         idx,
	}, ref)

	if !m.Session.Dialog.IsOpen() {
		return m, nil
	}
	m.EnterMode(model.ModeCommandDialog)
	return m, openDialogInputs(m)
}

// selectTab moves the active log tab by delta, wrapping around.
func selectTab(m *model.Model, delta int) tea.Cmd {
	tabs := m.Session.Logs.Addresses()
	if len(tabs) == 0 {
		return nil
	}
	current := 0
	if active, ok := m.Session.Logs.Active(); ok {
		for i, a := range tabs {
			if a == active {
				current = i
				break
			}
		}
	}
	next := ((current+delta)%len(tabs) + len(tabs)) % len(tabs)
	publish(m, eventbus.TopicSelectNode, eventbus.Interaction{
		Target:        string(tabs[next]),
		CurrentTarget: "tabs",
		Index:         next,
	}, tabs[next])
	m.LastLogLines = 0
	return nil
}

func publish(m *model.Model, topic eventbus.Topic, in eventbus.Interaction, payload any) {
	if err := m.Session.Bus.Publish(topic, in, payload); err != nil {
		LogDebug(m, controllerSubsystem, "%s: %v", topic, err)
	}
}
