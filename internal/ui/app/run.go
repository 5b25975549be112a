package app

import tea "github.com/charmbracelet/bubbletea"

// Run starts the console and blocks until the user quits.
func Run(deps Deps) error {
	p := tea.NewProgram(NewModel(deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
