package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agusx1211/dtrack/internal/theme"
)

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBase).
			Background(theme.ColorBlue).
			Padding(0, 2)

	HeaderWindowStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext0).
				Italic(true)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(theme.ColorMauve)

	DateStyle = lipgloss.NewStyle().
			Foreground(theme.ColorText)

	WeekendDateStyle = lipgloss.NewStyle().
				Foreground(theme.ColorOverlay0)

	TodayDateStyle = lipgloss.NewStyle().
			Foreground(theme.ColorPeach).
			Bold(true)

	SelectedCellStyle = lipgloss.NewStyle().
				Background(theme.ColorSurface1)
)

// Status bar
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(theme.ColorSubtext0).
			Background(theme.ColorSurface0).
			Padding(0, 1)

	StatusKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorLavender).
			Background(theme.ColorSurface0)

	StatusValueStyle = lipgloss.NewStyle().
				Foreground(theme.ColorSubtext0).
				Background(theme.ColorSurface0)

	HelpStyle = lipgloss.NewStyle().
			Foreground(theme.ColorOverlay0)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(theme.ColorRed).
			Bold(true)
)
