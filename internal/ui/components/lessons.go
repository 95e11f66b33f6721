package components

import (
	"fmt"
	"strings"

	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/ui/layout"
	"github.com/abhisek/tierloop/internal/ui/theme"
)

// Section renders a heading with a rule under it.
func Section(title string, width int) string {
	return "  " + theme.Heading.Render(title) + "\n  " + layout.Divider(width, 60) + "\n"
}

// LessonTable renders per-lesson accuracy, marking strong lessons with a
// star and weak ones with a bang.
func LessonTable(lessons []review.LessonStats, width int) string {
	if len(lessons) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Section("Lessons", width))
	for _, l := range lessons {
		mark, style := "  ", theme.Body
		switch {
		case l.Strong:
			mark, style = "★ ", theme.Correct
		case l.Weak:
			mark, style = "! ", theme.Incorrect
		}
		fmt.Fprintf(&b, "  %s%-28s %s\n", style.Render(mark), l.Name,
			theme.Muted.Render(fmt.Sprintf("%d/%d  %3.0f%%", l.Correct, l.Count, l.Accuracy*100)))
	}
	return b.String()
}
