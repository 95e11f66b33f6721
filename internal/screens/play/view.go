package play

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/tierloop/internal/diagnosis"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/ui/components"
	"github.com/abhisek/tierloop/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	switch s.mode {
	case modeAnswering:
		return s.renderQuestion(width)
	case modeReviewing:
		return s.renderReview(width)
	case modeError:
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			theme.Incorrect.Render("Something went wrong")+"\n\n"+
				theme.Body.Render(s.err.Error())+"\n\n"+
				theme.Hint.Render("press r to retry"))
	default:
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, theme.Hint.Render("Working..."))
	}
}

func (s *Screen) renderQuestion(width int) string {
	var b strings.Builder

	label := "Bundle"
	if s.out.Round != nil {
		label = fmt.Sprintf("Round %d", s.out.Round.Number)
	}
	tier := lipgloss.NewStyle().Foreground(theme.TierColor(s.out.State.Tier)).Bold(true).
		Render(s.out.State.Tier.DisplayName())
	b.WriteString("  " + tier + theme.Muted.Render("  ·  "+label))
	b.WriteString("\n  ")
	b.WriteString(components.ProgressBar{Done: s.index, Total: len(s.items), Width: min(width-4, 60)}.View())
	b.WriteString("\n\n")

	card := theme.Card.Width(min(width-4, 80)).Render(s.choice.View())
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, card))

	if q := s.items[s.index]; q.Placeholder {
		b.WriteString("\n\n  " + theme.Hint.Render("Practice item: fresh content was unavailable."))
	}
	return b.String()
}

func (s *Screen) renderReview(width int) string {
	r := s.review
	var b strings.Builder

	b.WriteString(theme.Title.Width(width).Render(reviewTitle(r)))
	b.WriteString("\n")
	b.WriteString(theme.Subtitle.Width(width).Render(fmt.Sprintf("%d of %d correct  ·  %s",
		r.Overall.Correct, r.Overall.Count, theme.Verdict(r.Passed))))
	b.WriteString("\n\n")

	b.WriteString(components.LessonTable(r.Lessons, width))

	if len(r.Missed) > 0 {
		b.WriteString("\n" + components.Section("Missed", width))
		for _, m := range r.Missed {
			b.WriteString("  " + theme.Body.Render(m.Prompt) + "\n")
			b.WriteString("    " + theme.Incorrect.Render("you: "+m.Chosen) + "   " + theme.Correct.Render("answer: "+m.Correct))
			if m.Cause != "" && m.Cause != diagnosis.CauseUnclassified {
				b.WriteString("   " + theme.Muted.Render(string(m.Cause)))
			}
			b.WriteString("\n")
			if m.Explanation != "" {
				b.WriteString("    " + theme.Hint.Render(m.Explanation) + "\n")
			}
		}
	}
	if len(r.Theory) > 0 {
		b.WriteString("\n" + components.Section("Theory", width))
		for _, n := range r.Theory {
			b.WriteString("  " + theme.Heading.Render(n.LessonID) + "\n")
			b.WriteString(lipgloss.NewStyle().Width(min(width-6, 90)).PaddingLeft(4).Foreground(theme.Text).Render(n.Text) + "\n")
		}
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\n" + components.Section("Next steps", width))
		for _, rec := range r.Recommendations {
			b.WriteString("  • " + theme.Body.Render(rec) + "\n")
		}
	}
	return b.String()
}

func reviewTitle(r review.Review) string {
	tier := r.Tier.DisplayName()
	switch r.Kind {
	case flow.ReviewBundlePass:
		return tier + " bundle passed!"
	case flow.ReviewBundleFail:
		return tier + " bundle: let's practice"
	case flow.ReviewRound:
		return fmt.Sprintf("%s round %d", tier, r.Round)
	case flow.ReviewSuppPass:
		return tier + " practice complete"
	case flow.ReviewSuppFail:
		return tier + " practice: keep at it"
	default:
		return tier + " review"
	}
}
