package controller

import (
	"strconv"

	"clusterdash/internal/eventbus"
	"clusterdash/internal/tui/model"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyMsgFilterMode feeds the filter input. Every edit re-filters the
// active log tab; enter keeps the term, esc clears it.
func handleKeyMsgFilterMode(m *model.Model, keyMsg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch keyMsg.Type {
	case tea.KeyEnter:
		m.FilterInput.Blur()
		m.LeaveOverlay()
		return m, nil
	case tea.KeyEsc:
		m.FilterInput.Blur()
		m.FilterInput.SetValue("")
		publishFilter(m)
		m.LeaveOverlay()
		return m, nil
	}

	before := m.FilterInput.Value()
	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(keyMsg)
	if m.FilterInput.Value() != before {
		publishFilter(m)
	}
	return m, cmd
}

func publishFilter(m *model.Model) {
	publish(m, eventbus.TopicFilterChanged, eventbus.Interaction{
		Target:        m.FilterInput.Value(),
		CurrentTarget: "filter",
		Index:         -1,
	}, m.FilterInput.Value())
}

// handleKeyMsgDialogMode drives the command dialog form.
func handleKeyMsgDialogMode(m *model.Model, keyMsg tea.KeyMsg) (*model.Model, tea.Cmd) {
	dialog := m.Session.Dialog

	switch {
	case key.Matches(keyMsg, m.Keys.Esc):
		dialog.Close()
		closeDialogInputs(m)
		m.LeaveOverlay()
		return m, nil

	case key.Matches(keyMsg, m.Keys.Tab), key.Matches(keyMsg, m.Keys.ShiftTab):
		return m, toggleDialogFocus(m)

	case key.Matches(keyMsg, m.Keys.Left):
		dialog.CycleRuntime(-1)
		return m, nil

	case key.Matches(keyMsg, m.Keys.Right):
		dialog.CycleRuntime(1)
		return m, nil

	case key.Matches(keyMsg, m.Keys.Enter):
		dialog.SetCommand(m.CommandInput.Value())
		dialog.SetRepeatTimes(repeatValue(m))
		if err := m.Session.SubmitCommand(); err != nil {
			LogWarn(controllerSubsystem, "Command for %s not sent: %v", dialog.Form().Target(), err)
			return m, m.SetStatusMessage("Command not sent", model.StatusBarError, statusDuration)
		}
		return m, m.SetStatusMessage("Command sent to "+string(dialog.Form().Target()), model.StatusBarSuccess, statusDuration)
	}

	var cmd tea.Cmd
	if m.DialogFocus == model.DialogFieldRepeat {
		m.RepeatInput, cmd = m.RepeatInput.Update(keyMsg)
		dialog.SetRepeatTimes(repeatValue(m))
	} else {
		m.CommandInput, cmd = m.CommandInput.Update(keyMsg)
		dialog.SetCommand(m.CommandInput.Value())
	}
	return m, cmd
}

// handleKeyMsgNotice dismisses the notice on any key.
func handleKeyMsgNotice(m *model.Model, _ tea.KeyMsg) (*model.Model, tea.Cmd) {
	m.Session.DismissNotice()
	m.LeaveOverlay()
	return m, nil
}

func repeatValue(m *model.Model) int {
	n, err := strconv.Atoi(m.RepeatInput.Value())
	if err != nil {
		return 0
	}
	return n
}

func openDialogInputs(m *model.Model) tea.Cmd {
	m.CommandInput.SetValue("")
	m.RepeatInput.SetValue("")
	m.RepeatInput.Blur()
	m.DialogFocus = model.DialogFieldCommand
	return m.CommandInput.Focus()
}

func closeDialogInputs(m *model.Model) {
	m.CommandInput.Blur()
	m.RepeatInput.Blur()
}

func toggleDialogFocus(m *model.Model) tea.Cmd {
	if m.DialogFocus == model.DialogFieldCommand {
		m.DialogFocus = model.DialogFieldRepeat
		m.CommandInput.Blur()
		return m.RepeatInput.Focus()
	}
	m.DialogFocus = model.DialogFieldCommand
	m.RepeatInput.Blur()
	return m.CommandInput.Focus()
}
