package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	title       lipgloss.Style
	mode        lipgloss.Style
	modeBusy    lipgloss.Style
	userLabel   lipgloss.Style
	userText    lipgloss.Style
	botLabel    lipgloss.Style
	placeholder lipgloss.Style
	inputBox    lipgloss.Style
	status      lipgloss.Style
	help        lipgloss.Style
}

func newTheme() theme {
	accent := lipgloss.Color("#5fafff")
	mint := lipgloss.Color("#05ffa1")
	muted := lipgloss.Color("#808080")

	return theme{
		title:       lipgloss.NewStyle().Bold(true).Foreground(accent),
		mode:        lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#000000")).Background(mint),
		modeBusy:    lipgloss.NewStyle().Padding(0, 1).Foreground(muted).Background(lipgloss.Color("#303030")),
		userLabel:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		userText:    lipgloss.NewStyle().PaddingLeft(2),
		botLabel:    lipgloss.NewStyle().Bold(true).Foreground(mint),
		placeholder: lipgloss.NewStyle().Italic(true).Foreground(muted).PaddingLeft(2),
		inputBox:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(muted),
		help:        lipgloss.NewStyle().Foreground(lipgloss.Color("#5c5c5c")),
	}
}
