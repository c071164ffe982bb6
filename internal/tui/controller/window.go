package controller

import (
	"clusterdash/internal/tui/model"
	"clusterdash/internal/tui/view"

	tea "github.com/charmbracelet/bubbletea"
)

// handleWindowSizeMsg updates the model with the new terminal dimensions when the window is resized.
// It also transitions from ModeInitializing → ModeMainDashboard once we know the size.
func handleWindowSizeMsg(m *model.Model, msg tea.WindowSizeMsg) (*model.Model, tea.Cmd) {
	m.Width = msg.Width
	m.Height = msg.Height

	if m.CurrentAppMode == model.ModeInitializing {
		m.CurrentAppMode = model.ModeMainDashboard
	}
	resize(m)
	return m, nil
}

// resize fits the table and log viewport into the current window.
func resize(m *model.Model) {
	l := view.ComputeLayout(m)
	m.Table.SetWidth(l.ContentWidth)
	m.Table.SetHeight(l.TableHeight)
	m.LogViewport.Width = l.ContentWidth
	m.LogViewport.Height = l.LogHeight
	m.Help.Width = m.Width
	m.FilterInput.Width = max(l.ContentWidth-4, 0)
	m.CommandInput.Width = l.DialogWidth - 14
}
