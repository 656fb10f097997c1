package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/agusx1211/dtrack/internal/catalog"
	"github.com/agusx1211/dtrack/internal/scoring"
	"github.com/agusx1211/dtrack/internal/tracker"
)

// printHeader prints a formatted section header.
func printHeader(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s%s%s\n", styleBoldCyan, title, colorReset)
	fmt.Fprintln(w, colorDim+strings.Repeat("-", len(title)+2)+colorReset)
}

// printField prints a labeled field.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s%-16s%s %s\n", colorBold, label+":", colorReset, value)
}

// printFieldColored prints a labeled field with colored value.
func printFieldColored(w io.Writer, label, value, color string) {
	fmt.Fprintf(w, "  %s%-16s%s %s%s%s\n", colorBold, label+":", colorReset, color, value, colorReset)
}

// levelColor returns an ANSI color code for a day level.
func levelColor(level scoring.Level) string {
	switch level {
	case scoring.LevelPerfect:
		return styleBoldGreen
	case scoring.LevelPartial:
		return colorYellow
	default:
		return colorDim
	}
}

// printTable prints a simple table with headers and rows.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, colorDim+"  (none)"+colorReset)
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = ansi.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				if cw := ansi.StringWidth(cell); cw > widths[i] {
					widths[i] = cw
				}
			}
		}
	}

	headerLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%s%-*s%s", colorBold, widths[i]+2, h, colorReset)
	}
	fmt.Fprintln(w, headerLine)

	sepLine := "  "
	for _, cw := range widths {
		sepLine += colorDim + strings.Repeat("-", cw+2) + colorReset
	}
	fmt.Fprintln(w, sepLine)

	for _, row := range rows {
		rowLine := "  "
		for i, cell := range row {
			if i < len(widths) {
				padding := max(widths[i]-ansi.StringWidth(cell), 0)
				rowLine += cell + strings.Repeat(" ", padding+2)
			}
		}
		fmt.Fprintln(w, strings.TrimRight(rowLine, " "))
	}
}

func doneMark(done bool) string {
	if done {
		return colorGreen + "x" + colorReset
	}
	return colorDim + "." + colorReset
}

// printMonth renders a month grid as a plain table.
func printMonth(w io.Writer, view tracker.MonthView, c *catalog.Catalog) {
	printHeader(w, view.Label)
	headers := []string{"Date"}
	for _, t := range c.Tasks() {
		headers = append(headers, t.Label)
	}
	headers = append(headers, "Score")

	rows := make([][]string, 0, len(view.Days))
	for _, d := range view.Days {
		row := []string{d.Weekday + " " + d.Date}
		for _, t := range d.Tasks {
			row = append(row, doneMark(t.Done))
		}
		row = append(row, fmt.Sprintf("%s%d/%d%s", levelColor(d.Level), d.Score, d.MaxScore, colorReset))
		rows = append(rows, row)
	}
	printTable(w, headers, rows)
	fmt.Fprintln(w)
	printStats(w, view.Stats)
}

func printStats(w io.Writer, s scoring.Stats) {
	printField(w, "Consistency", fmt.Sprintf("%.1f%%", s.Percentage))
	printField(w, "Score", fmt.Sprintf("%d/%d", s.ActualTotal, s.PossibleTotal))
	printField(w, "Perfect days", fmt.Sprintf("%d of %d", s.PerfectDays, s.Days))
}

// printDay renders one day with its tasks and topics.
func printDay(w io.Writer, d tracker.DayView) {
	printHeader(w, fmt.Sprintf("%s %s", d.Weekday, d.Date))
	for _, t := range d.Tasks {
		value := doneMark(t.Done)
		if t.Topic != "" {
			value += "  " + t.Topic
		}
		printField(w, fmt.Sprintf("%s (%d)", t.Label, t.Weight), value)
	}
	printFieldColored(w, "Score", fmt.Sprintf("%d/%d", d.Score, d.MaxScore), levelColor(d.Level))
	printField(w, "Updates", fmt.Sprintf("%d", d.CommitCount))
}
