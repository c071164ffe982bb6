package view

import (
	"clusterdash/internal/color"
	"clusterdash/internal/tui/model"
)

const (
	maxTableRows       = 8
	tableChromeLines   = 2
	minHeightForDetail = 24
	maxDialogWidth     = 80
)

// Layout holds the sizes of the dashboard's resizable parts.
type Layout struct {
	ContentWidth int
	TableHeight  int
	LogHeight    int
	ShowActivity bool
	DialogWidth  int
}

// ComputeLayout derives widget sizes from the window and the table size.
func ComputeLayout(m *model.Model) Layout {
	l := Layout{
		ContentWidth: m.Width - color.AppStyle.GetHorizontalFrameSize(),
		ShowActivity: m.Height >= minHeightForDetail,
	}
	if l.ContentWidth < 0 {
		l.ContentWidth = 0
	}

	rows := 0
	if m.Session != nil {
		rows = m.Session.Table.Len()
	}
	rows = min(max(rows, 1), maxTableRows)
	l.TableHeight = rows + tableChromeLines

	// header, tabs, filter line, status bar and help line
	used := 5 + l.TableHeight + color.PanelStyle.GetVerticalFrameSize() + 1
	if l.ShowActivity {
		used += model.ActivityPaneLines + 1
	}
	l.LogHeight = max(m.Height-used, 1)

	l.DialogWidth = min(max(m.Width-4, 20), maxDialogWidth)
	return l
}
