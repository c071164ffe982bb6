package model

// AddRawLineToActivityLog adds a pre-formatted log entry to the model's activity log,
// keeping at most MaxActivityLogLines entries.
func AddRawLineToActivityLog(m *Model, entry string) {
	m.ActivityLog = append(m.ActivityLog, entry)
	if len(m.ActivityLog) > MaxActivityLogLines {
		m.ActivityLog = m.ActivityLog[len(m.ActivityLog)-MaxActivityLogLines:]
	}
}
