package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/ui/theme"
)

// ProgressBar shows done out of total as a bar.
type ProgressBar struct {
	Label string
	Done  int
	Total int
	Width int
}

// Fraction returns Done/Total clamped to [0, 1].
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(float64(p.Done)/float64(p.Total), 0), 1)
}

// View renders the bar followed by a done/total counter.
func (p ProgressBar) View() string {
	var out string
	if p.Label != "" {
		out = theme.Body.Render(p.Label) + "  "
	}
	counter := fmt.Sprintf("  %d/%d", p.Done, p.Total)
	bar := max(p.Width-lipgloss.Width(out)-len(counter), 4)
	filled := int(float64(bar) * p.Fraction())

	out += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled))
	out += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", bar-filled))
	return out + theme.Muted.Render(counter)
}
