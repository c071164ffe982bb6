package model

import (
	"errors"
	"time"

	"clusterdash/internal/session"
	"clusterdash/pkg/logging"
)

var errNotANumber = errors.New("repeat count must be a non-negative number")

// TaskMsg carries one queued session task into Update, which runs it on
// the bubbletea loop.
type TaskMsg struct {
	Task session.Task
}

// NewLogEntryMsg carries one entry from the logging channel.
type NewLogEntryMsg struct {
	Entry logging.LogEntry
}

// ClearStatusBarMsg clears the status bar.
type ClearStatusBarMsg struct{}

// ClockTickMsg refreshes relative times such as "last sync 3s ago".
type ClockTickMsg struct {
	At time.Time
}

// SessionClosedMsg is sent once the session's inbox stops.
type SessionClosedMsg struct{}
