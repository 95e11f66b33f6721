package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/review"
)

const systemPrompt = `You are a patient, encouraging tutor for children in grades 3-5. You read a summary of a learner's recent answers and write short recommendations for what to do next.`

func describeKind(s review.Summary) string {
	if s.Final {
		return "End of session report covering every tier"
	}
	switch s.Kind {
	case flow.ReviewBundlePass:
		return "The learner passed the main question set for this tier"
	case flow.ReviewBundleFail:
		return "The learner did not pass the main question set and will now do remediation rounds"
	case flow.ReviewRound:
		return fmt.Sprintf("Result of remediation round %d", s.Round)
	case flow.ReviewSuppPass:
		return "The learner passed remediation for this tier"
	case flow.ReviewSuppFail:
		return "The learner did not pass remediation for this tier and moves on anyway"
	}
	return "Progress summary"
}

func buildUserMessage(s review.Summary, maxRecs int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Tier: %s\n", s.Tier.DisplayName())
	fmt.Fprintf(&b, "Situation: %s\n", describeKind(s))
	fmt.Fprintf(&b, "Overall: %d of %d correct (%.0f%%), %s total time\n",
		s.Overall.Correct, s.Overall.Count, s.Overall.Accuracy*100, s.Overall.TotalTime.Round(time.Second))

	b.WriteString("\nLessons:\n")
	if len(s.Lessons) == 0 {
		b.WriteString("None\n")
	}
	for _, l := range s.Lessons {
		flag := ""
		switch {
		case l.Weak:
			flag = " [weak]"
		case l.Strong:
			flag = " [strong]"
		}
		fmt.Fprintf(&b, "- %s: %d of %d correct (%.0f%%)%s\n", l.Name, l.Correct, l.Count, l.Accuracy*100, flag)
	}

	if len(s.Missed) > 0 {
		b.WriteString("\nMissed questions:\n")
		for _, m := range s.Missed {
			if m.Prompt == "" {
				continue
			}
			fmt.Fprintf(&b, "- %q: answered %q, correct was %q\n", m.Prompt, m.Chosen, m.Correct)
		}
	}

	fmt.Fprintf(&b, `
Instructions:
Write between 1 and %d recommendations.
1. Each recommendation is one sentence addressed to the learner.
2. Name the specific lesson a recommendation is about.
3. Focus on weak lessons first. Mention strong lessons only briefly.
4. Use plain ASCII text. No LaTeX, no Unicode symbols.`, maxRecs)

	return b.String()
}
