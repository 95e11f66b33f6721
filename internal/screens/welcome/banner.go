package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/ui/theme"
)

const bannerArt = `
 ▀█▀ █ █▀▀ █▀█ █   █▀█ █▀█ █▀█
  █  █ ██▄ █▀▄ █▄▄ █▄█ █▄█ █▀▀`

const bannerCompact = "T I E R L O O P"

// RenderBanner returns the banner, or a one-line fallback on narrow
// terminals.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	if width < 40 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
