package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vpnhouse/console/internal/dialog"
	"github.com/vpnhouse/console/internal/ui/theme"
)

// Overlay renders the active confirmation dialog centered in the given box.
func Overlay(d *dialog.Dialog, width, height int) string {
	if d == nil {
		return ""
	}
	boxW := width * 2 / 3
	if boxW < 40 {
		boxW = width - 4
	}
	confirm := d.ConfirmLabel
	if confirm == "" {
		confirm = "Confirm"
	}
	body := theme.Title.Render(d.Title) + "\n\n" +
		d.Message + "\n\n" +
		theme.Active.Render("enter: "+confirm) + "  " + theme.Muted.Render("esc: cancel")
	box := theme.PaneActive.Width(boxW).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
