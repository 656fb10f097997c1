package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/agusx1211/dtrack/internal/theme"
	"github.com/agusx1211/dtrack/internal/tracker"
)

const (
	dateColWidth  = 11
	scoreColWidth = 7
	maxLabelWidth = 10
	// header, blank, table header, then blank, status bar, help, message
	chromeLines = 7
)

// View implements tea.Model.
func (m Model) View() string {
	var lines []string
	lines = append(lines, m.renderHeader(), "")
	lines = append(lines, m.renderTableHeader())

	rows := m.renderRows()
	offset, visible := m.rowWindow(len(rows))
	lines = append(lines, rows[offset:offset+visible]...)

	lines = append(lines, "", m.renderStatusBar(), m.renderHelp(), m.renderMessage())

	if m.width <= 0 || m.height <= 0 {
		return strings.Join(lines, "\n")
	}
	return fitLines(lines, m.width, m.height)
}

// rowWindow returns which slice of day rows fits on screen while keeping the
// cursor row visible.
func (m Model) rowWindow(total int) (offset, visible int) {
	visible = total
	if m.height > 0 {
		if avail := m.height - chromeLines; avail < visible {
			visible = max(avail, 1)
		}
	}
	if visible > total {
		visible = total
	}
	if m.row >= visible {
		offset = m.row - visible + 1
	}
	return offset, visible
}

func (m Model) renderHeader() string {
	title := HeaderStyle.Render("dtrack  " + m.view.Label)
	w := m.svc.Window()
	return title + "  " + HeaderWindowStyle.Render(fmt.Sprintf("%s .. %s", w.Start, w.End))
}

func (m Model) taskColWidths() []int {
	tasks := m.svc.Catalog().Tasks()
	widths := make([]int, len(tasks))
	for i, t := range tasks {
		widths[i] = max(lipgloss.Width(taskLabel(t.Label)), 3) + 2
	}
	return widths
}

func taskLabel(label string) string {
	return ansi.Truncate(label, maxLabelWidth, "…")
}

func (m Model) renderTableHeader() string {
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Width(dateColWidth).Render("Date"))
	widths := m.taskColWidths()
	for i, t := range m.svc.Catalog().Tasks() {
		b.WriteString(TableHeaderStyle.Width(widths[i]).Align(lipgloss.Center).Render(taskLabel(t.Label)))
	}
	b.WriteString(TableHeaderStyle.Width(scoreColWidth).Align(lipgloss.Right).Render("Score"))
	return b.String()
}

func (m Model) renderRows() []string {
	widths := m.taskColWidths()
	rows := make([]string, 0, len(m.view.Days))
	for i, day := range m.view.Days {
		rows = append(rows, m.renderDay(i, day, widths))
	}
	return rows
}

func (m Model) renderDay(idx int, day tracker.DayView, widths []int) string {
	var b strings.Builder

	label := day.Weekday + " " + day.Date[5:]
	dateStyle := DateStyle
	switch {
	case day.Date == m.today:
		dateStyle = TodayDateStyle
	case day.Weekend:
		dateStyle = WeekendDateStyle
	}
	cursor := "  "
	if idx == m.row {
		cursor = "▸ "
	}
	b.WriteString(dateStyle.Width(dateColWidth).Render(cursor + label))

	for i, task := range day.Tasks {
		if i >= len(widths) {
			break
		}
		cell := lipgloss.NewStyle().Width(widths[i]).Align(lipgloss.Center)
		if idx == m.row && i == m.col {
			cell = cell.Inherit(SelectedCellStyle)
		}
		b.WriteString(cell.Render(theme.Cell(task.Done)))
	}

	score := fmt.Sprintf("%d/%d", day.Score, day.MaxScore)
	b.WriteString(theme.LevelStyle(day.Level).Width(scoreColWidth).Align(lipgloss.Right).Render(score))
	return b.String()
}

func (m Model) renderStatusBar() string {
	s := m.view.Stats
	sep := StatusValueStyle.Render("  │  ")
	parts := []string{
		StatusKeyStyle.Render("Consistency ") + StatusValueStyle.Render(fmt.Sprintf("%.1f%%", s.Percentage)),
		StatusKeyStyle.Render("Perfect ") + StatusValueStyle.Render(fmt.Sprintf("%d", s.PerfectDays)),
		StatusKeyStyle.Render("Score ") + StatusValueStyle.Render(fmt.Sprintf("%d/%d", s.ActualTotal, s.PossibleTotal)),
		StatusKeyStyle.Render("Today ") + StatusValueStyle.Render(fmt.Sprintf("%d commits", m.todayCommits)),
	}
	return StatusBarStyle.Render(strings.Join(parts, sep))
}

func (m Model) renderHelp() string {
	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return HelpStyle.Render(strings.Join(parts, " · "))
}

func (m Model) renderMessage() string {
	if m.err != nil {
		return ErrorStyle.Render("error: " + m.err.Error())
	}
	return HelpStyle.Render(m.status)
}

// fitLines renders exactly w cols and h lines, truncating without wrapping.
func fitLines(lines []string, w, h int) string {
	emptyLine := strings.Repeat(" ", w)
	result := make([]string, h)

	for i := 0; i < h; i++ {
		if i < len(lines) {
			line := lines[i]
			parts := splitRenderableLines(line)
			if len(parts) > 0 {
				line = parts[0]
			}
			line = ansi.Truncate(line, w, "")
			if pad := w - lipgloss.Width(line); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			result[i] = line
		} else {
			result[i] = emptyLine
		}
	}
	return strings.Join(result, "\n")
}

func splitRenderableLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Split(s, "\n")
}
