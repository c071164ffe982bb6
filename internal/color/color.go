package color

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Primary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	Success = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"}
	Error   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"}
	Warning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"}
	Info    = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#3B82F6"}
	Subtle  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	Border  = lipgloss.AdaptiveColor{Light: "#D1D1D1", Dark: "#3C3C3C"}
	Text    = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
)

// Styles
var (
	AppStyle    = lipgloss.NewStyle().Padding(0, 1)
	StatusStyle = lipgloss.NewStyle().Foreground(Subtle).Italic(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	InfoStyle    = lipgloss.NewStyle().Foreground(Info)
	SubtleStyle  = lipgloss.NewStyle().Foreground(Subtle)

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border)
	PanelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	TabStyle          = lipgloss.NewStyle().Padding(0, 1).Foreground(Text)
	ActiveTabStyle    = TabStyle.Bold(true).Underline(true).Foreground(Primary)
	InactiveTabMarker = lipgloss.NewStyle().Foreground(Error)

	StatusBarStyle = lipgloss.NewStyle().Foreground(Text).Background(lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#262626"})

	OverlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)
	NoticeOverlayStyle = OverlayStyle.BorderForeground(Error)
	OverlayTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	LabelStyle         = lipgloss.NewStyle().Foreground(Subtle).Width(10)
	SelectedStyle      = lipgloss.NewStyle().Bold(true).Foreground(Primary)
)

// Initialize forces the background lipgloss assumes when picking adaptive colors.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// StateStyle returns the style for a channel state's name.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "Open":
		return SuccessStyle
	case "Connecting":
		return WarningStyle
	case "Suspended", "Closed":
		return ErrorStyle
	default:
		return SubtleStyle
	}
}
