package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - Earthy tones (lighter for dark backgrounds)
var (
	primaryColor   = lipgloss.Color("#E8C4A0") // Light warm beige
	secondaryColor = lipgloss.Color("#7EBB81") // Light forest green
	accentColor    = lipgloss.Color("#A8C9A4") // Soft sage green
	successColor   = lipgloss.Color("#B5D99C") // Bright sage
	mutedColor     = lipgloss.Color("#B8A890") // Light taupe
	fgColor        = lipgloss.Color("#F5F3ED") // Warm white
	darkColor      = lipgloss.Color("#1E1E1E")
	errorColor     = lipgloss.Color("#E07B7B")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Padding(0, 1)

	highlightStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	instructionStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)

	feedStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Padding(0, 1)

	usernameStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(darkColor).
				Background(successColor).
				Bold(true)

	optionStyle = lipgloss.NewStyle().
			Padding(0, 0)

	alertBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(errorColor).
			Padding(1, 3).
			Align(lipgloss.Center)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)
)

// panelStyle frames a panel in its chosen color
func panelStyle(color string, width, height int, focused bool) lipgloss.Style {
	border := lipgloss.RoundedBorder()
	if focused {
		border = lipgloss.ThickBorder()
	}
	return lipgloss.NewStyle().
		Border(border).
		BorderForeground(lipgloss.Color(color)).
		Width(width).
		Height(height).
		Padding(0, 1)
}

func headerStyle(color string, width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Foreground(darkColor).
		Bold(true).
		Width(width).
		Align(lipgloss.Center)
}

func swatchStyle(color string, selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Background(lipgloss.Color(color)).
		Padding(0, 1)
	if selected {
		s = s.Foreground(darkColor).Bold(true)
	}
	return s
}
