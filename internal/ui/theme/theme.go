// Package theme holds the lipgloss palette shared by every view.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Base    = lipgloss.Color("#16161e")
	Mantle  = lipgloss.Color("#1a1b26")
	Surface = lipgloss.Color("#2f334d")
	Text    = lipgloss.Color("#c0caf5")
	Subtext = lipgloss.Color("#565f89")
	Accent  = lipgloss.Color("#7aa2f7")
	Green   = lipgloss.Color("#9ece6a")
	Yellow  = lipgloss.Color("#e0af68")
	Red     = lipgloss.Color("#f7768e")

	Title  = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Muted  = lipgloss.NewStyle().Foreground(Subtext)
	Good   = lipgloss.NewStyle().Foreground(Green)
	Warn   = lipgloss.NewStyle().Foreground(Yellow)
	Bad    = lipgloss.NewStyle().Foreground(Red)
	Active = lipgloss.NewStyle().Foreground(Accent).Bold(true)

	Pane = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Surface).
		Padding(1)

	PaneActive = Pane.BorderForeground(Accent)
)
