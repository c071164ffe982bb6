package controller

import (
	"clusterdash/internal/session"
	"clusterdash/internal/tui/model"
	"clusterdash/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// NewProgram creates the dashboard program over a started session.
func NewProgram(s *session.Session, debugMode bool, logChannel <-chan logging.LogEntry) *tea.Program {
	m := model.InitializeModel(s, debugMode, logChannel)
	return tea.NewProgram(NewAppModel(m), tea.WithAltScreen())
}
