package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agusx1211/dtrack/internal/scoring"
)

// Color palette - dark theme inspired by Catppuccin Mocha
var (
	ColorBase     = lipgloss.Color("#1e1e2e")
	ColorSurface0 = lipgloss.Color("#313244")
	ColorSurface1 = lipgloss.Color("#45475a")
	ColorSurface2 = lipgloss.Color("#585b70")
	ColorOverlay0 = lipgloss.Color("#6c7086")
	ColorText     = lipgloss.Color("#cdd6f4")
	ColorSubtext0 = lipgloss.Color("#a6adc8")
	ColorSubtext1 = lipgloss.Color("#bac2de")

	ColorRed      = lipgloss.Color("#f38ba8")
	ColorGreen    = lipgloss.Color("#a6e3a1")
	ColorYellow   = lipgloss.Color("#f9e2af")
	ColorBlue     = lipgloss.Color("#89b4fa")
	ColorMauve    = lipgloss.Color("#cba6f7")
	ColorTeal     = lipgloss.Color("#94e2d5")
	ColorPeach    = lipgloss.Color("#fab387")
	ColorFlamingo = lipgloss.Color("#f2cdcd")
	ColorLavender = lipgloss.Color("#b4befe")
)

// Task cell indicators
var (
	CellDone = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true).SetString("■")
	CellOpen = lipgloss.NewStyle().Foreground(ColorSurface2).SetString("·")
)

// Cell returns the indicator for a task flag.
func Cell(done bool) string {
	if done {
		return CellDone.String()
	}
	return CellOpen.String()
}

// LevelColor maps a day level onto the palette: nothing done is muted,
// partial days are yellow and perfect days green.
func LevelColor(level scoring.Level) lipgloss.Color {
	switch level {
	case scoring.LevelPerfect:
		return ColorGreen
	case scoring.LevelPartial:
		return ColorYellow
	default:
		return ColorOverlay0
	}
}

// LevelStyle returns a bold foreground style for a day level.
func LevelStyle(level scoring.Level) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(LevelColor(level)).Bold(level == scoring.LevelPerfect)
}
