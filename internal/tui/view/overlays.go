package view

import (
	"fmt"
	"strings"

	"clusterdash/internal/color"
	"clusterdash/internal/tui/model"

	"github.com/charmbracelet/lipgloss"
)

func place(m *model.Model, box string) string {
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, box)
}

func renderHelpOverlay(m *model.Model) string {
	title := color.OverlayTitleStyle.Render("KEYBOARD SHORTCUTS")
	body := m.Help.FullHelpView(m.Keys.FullHelp())
	return place(m, color.OverlayStyle.Render(title+"\n"+body))
}

func renderNotice(m *model.Model) string {
	notice, ok := m.Session.Notice()
	if !ok {
		return renderDashboard(m)
	}
	l := ComputeLayout(m)
	body := lipgloss.NewStyle().Width(l.DialogWidth - 6).Render(notice.Message)
	content := lipgloss.JoinVertical(lipgloss.Left,
		color.OverlayTitleStyle.Foreground(color.Error).Render(notice.Title),
		body,
		"",
		color.SubtleStyle.Render("press any key to dismiss"),
	)
	return place(m, color.NoticeOverlayStyle.Render(content))
}

func renderCommandDialog(m *model.Model) string {
	d := m.Session.Dialog
	form := d.Form()
	l := ComputeLayout(m)
	inner := l.DialogWidth - 6

	lines := []string{
		color.OverlayTitleStyle.Render("Run command on " + string(form.Target())),
		color.LabelStyle.Render("Runtime") + renderRuntimes(form.Runtimes, form.Runtime),
		color.LabelStyle.Render("Command") + focusMark(m, model.DialogFieldCommand) + m.CommandInput.View(),
		color.LabelStyle.Render("Repeat") + focusMark(m, model.DialogFieldRepeat) + m.RepeatInput.View(),
		"",
	}

	if d.Pending() != "" {
		lines = append(lines, m.Spinner.View()+" waiting for result")
	}
	if out, ok := d.Output(); ok {
		status := color.SuccessStyle
		if out.StatusCode != 0 {
			status = color.ErrorStyle
		}
		lines = append(lines,
			status.Render(fmt.Sprintf("status %d", out.StatusCode))+color.SubtleStyle.Render("  "+out.ReceivedAt.Format("15:04:05")),
			lipgloss.NewStyle().Width(inner).Render(out.Output),
		)
	}
	lines = append(lines, "", color.SubtleStyle.Render("tab field · ←/→ runtime · enter send · esc close"))

	return place(m, color.OverlayStyle.Width(l.DialogWidth).Render(strings.Join(lines, "\n")))
}

func renderRuntimes(runtimes []string, selected string) string {
	if len(runtimes) == 0 {
		return color.SubtleStyle.Render("none advertised")
	}
	parts := make([]string, len(runtimes))
	for i, r := range runtimes {
		if r == selected {
			parts[i] = color.SelectedStyle.Render("‹" + r + "›")
		} else {
			parts[i] = color.SubtleStyle.Render(r)
		}
	}
	return strings.Join(parts, " ")
}

func focusMark(m *model.Model, field model.DialogField) string {
	if m.DialogFocus == field {
		return color.SelectedStyle.Render("> ")
	}
	return "  "
}
