package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorCream  = lipgloss.Color("#F5F5DC")
	colorMuted  = lipgloss.Color("#6B7280")
	colorRed    = lipgloss.Color("#EF4444")
	colorYellow = lipgloss.Color("#EAB308")
	colorGreen  = lipgloss.Color("#22C55E")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCream)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errStyle   = lipgloss.NewStyle().Foreground(colorRed)

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCream).
			Padding(0, 1)
	assistantBubbleStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted).
				Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCream).Background(lipgloss.Color("#374151"))
	doneStyle     = lipgloss.NewStyle().Strikethrough(true).Foreground(colorMuted)

	helpStyle = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)
)

func priorityStyle(priority string) lipgloss.Style {
	switch priority {
	case "high":
		return lipgloss.NewStyle().Foreground(colorRed)
	case "medium":
		return lipgloss.NewStyle().Foreground(colorYellow)
	default:
		return lipgloss.NewStyle().Foreground(colorGreen)
	}
}
