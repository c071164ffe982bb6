package model

import (
	"time"

	"clusterdash/internal/session"
	"clusterdash/pkg/logging"

	tea "github.com/charmbracelet/bubbletea"
)

const clockInterval = time.Second

// ListenForTasksCmd waits for the next queued session task.
func ListenForTasksCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		select {
		case task := <-s.Inbox():
			return TaskMsg{Task: task}
		case <-s.Done():
			return SessionClosedMsg{}
		}
	}
}

// ListenForLogEntriesCmd waits for the next log entry.
func ListenForLogEntriesCmd(ch <-chan logging.LogEntry) tea.Cmd {
	return func() tea.Msg {
		entry, ok := <-ch
		if !ok {
			return nil
		}
		return NewLogEntryMsg{Entry: entry}
	}
}

// ClockTickCmd fires a ClockTickMsg after one clock interval.
func ClockTickCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return ClockTickMsg{At: t}
	})
}
