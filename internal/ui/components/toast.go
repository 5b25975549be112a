// Package components holds small shared render helpers used by the root
// model: the toast bar and the confirmation overlay.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vpnhouse/console/internal/notify"
	"github.com/vpnhouse/console/internal/ui/theme"
)

// ToastBar renders up to the given notifications, most recent last, one per
// line. Errors stay until dismissed, so they are styled to stand out.
func ToastBar(notices []notify.Notification, width int) string {
	if len(notices) == 0 {
		return ""
	}
	lines := make([]string, 0, len(notices))
	for _, n := range notices {
		var style lipgloss.Style
		var mark string
		switch n.Kind {
		case notify.KindError:
			style, mark = theme.Bad, "✗"
		case notify.KindWarning:
			style, mark = theme.Warn, "!"
		default:
			style, mark = theme.Good, "✓"
		}
		line := style.Render(mark + " " + n.Message)
		if n.Action != nil {
			line += "  " + theme.Muted.Render("a:"+n.Action.Label)
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}
