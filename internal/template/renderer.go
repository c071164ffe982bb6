package template

import (
	"sync"

	"clusterdash/internal/config"
)

// Column is one table column and the template that fills its cells.
type Column struct {
	Title    string
	Width    int
	Template Descriptor
}

// ColumnsFromConfig parses the configured column templates.
func ColumnsFromConfig(cols []config.ColumnConfig) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{Title: c.Title, Width: c.Width, Template: Parse(c.Template)}
	}
	return out
}

// TableRenderer keeps a backing set of records and their rendered rows.
// Every mutation redraws all rows from the backing set.
type TableRenderer struct {
	columns []Column

	mu      sync.RWMutex
	entries []Record
	rows    [][]string
}

// NewTableRenderer creates an empty table.
func NewTableRenderer(columns []Column) *TableRenderer {
	return &TableRenderer{columns: columns}
}

// Columns returns the column layout.
func (t *TableRenderer) Columns() []Column { return t.columns }

// SetEntries replaces the backing set and redraws.
func (t *TableRenderer) SetEntries(items []Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append([]Record(nil), items...)
	t.redraw()
}

// AddEntry appends one record and redraws.
func (t *TableRenderer) AddEntry(item Record) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, item)
	t.redraw()
}

// Rows returns the rendered rows.
func (t *TableRenderer) Rows() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// Entries returns the backing records.
func (t *TableRenderer) Entries() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Record(nil), t.entries...)
}

// Len returns the number of rows.
func (t *TableRenderer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *TableRenderer) redraw() {
	rows := make([][]string, len(t.entries))
	for i, entry := range t.entries {
		row := make([]string, len(t.columns))
		for j, col := range t.columns {
			row[j] = Render(col.Template, entry)
		}
		rows[i] = row
	}
	// rows are swapped whole so readers never see a half-drawn table
	t.rows = rows
}

// ListRenderer renders each record to one line through a single template.
type ListRenderer struct {
	template Descriptor

	mu      sync.RWMutex
	entries []Record
	lines   []string
}

// NewListRenderer creates an empty list rendering with tmpl.
func NewListRenderer(tmpl string) *ListRenderer {
	return &ListRenderer{template: Parse(tmpl)}
}

// SetEntries replaces the backing set and redraws.
func (l *ListRenderer) SetEntries(items []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Record(nil), items...)
	l.redraw()
}

// AddEntry appends one record and redraws.
func (l *ListRenderer) AddEntry(item Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, item)
	l.redraw()
}

// Lines returns the rendered lines.
func (l *ListRenderer) Lines() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lines
}

// Len returns the number of lines.
func (l *ListRenderer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *ListRenderer) redraw() {
	lines := make([]string, len(l.entries))
	for i, entry := range l.entries {
		lines[i] = Render(l.template, entry)
	}
	l.lines = lines
}
