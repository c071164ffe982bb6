package view

import (
	"fmt"
	"strings"
	"time"

	"clusterdash/internal/color"
	"clusterdash/internal/syncchannel"
	"clusterdash/internal/tui/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Render renders the UI according to the current model state.
func Render(m *model.Model) string {
	switch m.CurrentAppMode {
	case model.ModeQuitting:
		return color.StatusStyle.Render(m.QuittingMessage)
	case model.ModeInitializing:
		if m.Width == 0 || m.Height == 0 {
			return color.StatusStyle.Render("Initializing... (waiting for window size)")
		}
		return color.StatusStyle.Render("Initializing...")
	case model.ModeHelpOverlay:
		return renderHelpOverlay(m)
	case model.ModeCommandDialog:
		return renderCommandDialog(m)
	case model.ModeNotice:
		return renderNotice(m)
	default:
		return renderDashboard(m)
	}
}

func renderDashboard(m *model.Model) string {
	l := ComputeLayout(m)

	parts := []string{
		renderHeader(m, l.ContentWidth),
		m.Table.View(),
		renderTabs(m, l.ContentWidth),
		renderFilterLine(m),
		renderLogPanel(m, l.ContentWidth),
	}
	if l.ShowActivity {
		parts = append(parts, renderActivity(m, l.ContentWidth))
	}
	parts = append(parts, renderStatusBar(m, l.ContentWidth), m.Help.ShortHelpView(m.Keys.ShortHelp()))

	return color.AppStyle.Width(m.Width).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderHeader(m *model.Model, width int) string {
	s := m.Session
	primary := s.Primary()
	state := "Connecting"
	if st, ok := s.ChannelState(primary); ok {
		state = st.String()
	}

	var b strings.Builder
	b.WriteString(color.HeaderStyle.Render("clusterdash"))
	b.WriteString("  ")
	b.WriteString(string(primary))
	b.WriteString(" ")
	b.WriteString(color.StateStyle(state).Render("[" + state + "]"))
	if state != syncchannel.StateOpen.String() {
		b.WriteString(" ")
		b.WriteString(m.Spinner.View())
	}

	stamp, at := s.LastSync()
	if at.IsZero() {
		b.WriteString(color.SubtleStyle.Render("  waiting for topology"))
	} else {
		b.WriteString(color.SubtleStyle.Render(fmt.Sprintf("  last sync %s (%s ago)", stamp, Since(at, m.Now))))
	}
	return truncate(b.String(), width)
}

// Since renders the time elapsed from t to now in whole seconds.
func Since(t, now time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}

func renderTabs(m *model.Model, width int) string {
	s := m.Session
	tabs := s.Logs.Addresses()
	if len(tabs) == 0 {
		return color.SubtleStyle.Render("no log streams yet")
	}
	active, _ := s.Logs.Active()

	rendered := make([]string, 0, len(tabs))
	for _, addr := range tabs {
		label := string(addr)
		if st, ok := s.ChannelState(addr); !ok || st != syncchannel.StateOpen {
			label += color.InactiveTabMarker.Render(" ✗")
		}
		style := color.TabStyle
		if addr == active {
			style = color.ActiveTabStyle
		}
		rendered = append(rendered, style.Render(label))
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
}

func renderFilterLine(m *model.Model) string {
	if m.CurrentAppMode == model.ModeFilterInput {
		return m.FilterInput.View()
	}
	if term := m.Session.Filter(); term != "" {
		return color.InfoStyle.Render(fmt.Sprintf("filter %q: %d shown", term, m.Session.LogList.Len()))
	}
	return color.SubtleStyle.Render("/ to filter")
}

func renderLogPanel(m *model.Model, width int) string {
	title := "Logs"
	if active, ok := m.Session.Logs.Active(); ok {
		title = "Logs · " + string(active)
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		color.PanelTitleStyle.Render(title),
		m.LogViewport.View(),
	)
	return color.PanelStyle.Width(max(width-color.PanelStyle.GetHorizontalBorderSize(), 0)).Render(content)
}

func renderActivity(m *model.Model, width int) string {
	lines := m.ActivityLog
	if len(lines) > model.ActivityPaneLines {
		lines = lines[len(lines)-model.ActivityPaneLines:]
	}
	out := make([]string, 0, model.ActivityPaneLines+1)
	out = append(out, color.PanelTitleStyle.Render("Activity"))
	for _, line := range lines {
		out = append(out, color.SubtleStyle.Render(truncate(line, width)))
	}
	for len(out) < model.ActivityPaneLines+1 {
		out = append(out, "")
	}
	return strings.Join(out, "\n")
}

func renderStatusBar(m *model.Model, width int) string {
	open := 0
	tabs := m.Session.Logs.Addresses()
	for _, addr := range tabs {
		if st, ok := m.Session.ChannelState(addr); ok && st == syncchannel.StateOpen {
			open++
		}
	}
	right := fmt.Sprintf("nodes %d · streams %d/%d open", len(m.Session.Nodes()), open, len(tabs))

	left := m.StatusBarMessage
	switch m.StatusBarMessageType {
	case model.StatusBarSuccess:
		left = color.SuccessStyle.Render(left)
	case model.StatusBarError:
		left = color.ErrorStyle.Render(left)
	case model.StatusBarWarning:
		left = color.WarningStyle.Render(left)
	default:
		left = color.InfoStyle.Render(left)
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return color.StatusBarStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

// TruncateLine cuts a plain log line to width display cells.
func TruncateLine(line string, width int) string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return line
	}
	return runewidth.Truncate(line, width, "…")
}
