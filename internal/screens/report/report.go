// Package report shows the terminal report of an ended session.
package report

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/screen"
	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/ui/components"
	"github.com/abhisek/tierloop/internal/ui/layout"
	"github.com/abhisek/tierloop/internal/ui/theme"
)

// Screen displays a session report.
type Screen struct {
	report session.Report
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.StatusProvider  = (*Screen)(nil)
)

// New creates the report screen.
func New(r session.Report) *Screen {
	return &Screen{report: r}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Report"
}

func (s *Screen) Status() string {
	return "END"
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Enter", Description: "Quit"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "q":
			return s, tea.Quit
		}
	}
	return s, nil
}

func (s *Screen) View(width, height int) string {
	r := s.report
	var b strings.Builder

	heading := "Session complete!"
	if r.Identity.Name != "" {
		heading = fmt.Sprintf("Well done, %s!", r.Identity.Name)
	}
	b.WriteString(theme.Title.Width(width).Render(heading))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(fmt.Sprintf("%d of %d correct  ·  %.0f%%  ·  %s",
		r.Overall.Correct, r.Overall.Count, r.Overall.Accuracy*100, r.EndedAt.Sub(r.StartedAt).Round(time.Second))))
	b.WriteString("\n\n")

	b.WriteString(components.Section("Tiers", width))
	for _, t := range r.Tiers {
		b.WriteString("  " + TierLine(t) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(components.LessonTable(r.Lessons, width))

	if len(r.Recommendations) > 0 {
		b.WriteString("\n" + components.Section("Recommendations", width))
		for _, rec := range r.Recommendations {
			b.WriteString("  • " + theme.Body.Render(rec) + "\n")
		}
	}
	return b.String()
}

// TierLine summarizes one tier on a single line.
func TierLine(t session.TierReport) string {
	name := lipgloss.NewStyle().Foreground(theme.TierColor(t.Tier)).Bold(true).Width(14).Render(t.Tier.DisplayName())
	line := fmt.Sprintf("%s bundle %d/%d %s", name, t.BundleScore, t.BundleTotal, theme.Verdict(t.Passed))
	if t.RemediationPassed != nil {
		line += theme.Muted.Render(fmt.Sprintf("   rounds %d, %d/%d ", t.Rounds, t.RemediationCorrect, t.RemediationTotal)) +
			theme.Verdict(*t.RemediationPassed)
	}
	return line
}
