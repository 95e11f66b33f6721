package review

import (
	"context"
	"fmt"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/flow"
)

// Summary is what a Narrator sees: aggregated statistics only.
type Summary struct {
	Tier    curriculum.Tier
	Kind    flow.ReviewKind
	Round   int
	Passed  bool
	Lessons []LessonStats
	Overall Overall
	Missed  []MissedItem

	// Final is set for the end-of-session report.
	Final bool
}

// Narrator turns a summary into recommendation strings. Implementations
// may be slow or fail.
type Narrator interface {
	Recommend(ctx context.Context, s Summary) ([]string, error)
}

// NarratorFunc adapts a function to Narrator.
type NarratorFunc func(ctx context.Context, s Summary) ([]string, error)

func (f NarratorFunc) Recommend(ctx context.Context, s Summary) ([]string, error) {
	return f(ctx, s)
}

// StaticNarrator builds fixed recommendations from the statistics. It never
// fails and is the fallback when the configured narrator does.
type StaticNarrator struct{}

func (StaticNarrator) Recommend(_ context.Context, s Summary) ([]string, error) {
	return staticRecommendations(s), nil
}

func staticRecommendations(s Summary) []string {
	tier := s.Tier.DisplayName()
	var out []string
	switch {
	case s.Final:
		out = append(out, fmt.Sprintf("Session complete: %d of %d answers correct.", s.Overall.Correct, s.Overall.Count))
	case s.Kind == flow.ReviewBundlePass:
		out = append(out, fmt.Sprintf("You passed the %s tier.", tier))
	case s.Kind == flow.ReviewBundleFail:
		out = append(out, fmt.Sprintf("The %s tier needs more practice. The next rounds focus on the questions you missed.", tier))
	case s.Kind == flow.ReviewRound:
		out = append(out, fmt.Sprintf("Round %d: %d of %d correct.", s.Round, s.Overall.Correct, s.Overall.Count))
	case s.Kind == flow.ReviewSuppPass:
		out = append(out, fmt.Sprintf("Remediation for the %s tier succeeded.", tier))
	case s.Kind == flow.ReviewSuppFail:
		out = append(out, fmt.Sprintf("Remediation for the %s tier fell short. Read the explanations below before moving on.", tier))
	}

	weak := 0
	for _, l := range s.Lessons {
		if l.Weak {
			weak++
			out = append(out, fmt.Sprintf("Revisit %s: %d of %d correct.", l.Name, l.Correct, l.Count))
		}
	}
	if weak == 0 {
		for _, l := range s.Lessons {
			if l.Strong {
				out = append(out, fmt.Sprintf("%s looks solid.", l.Name))
			}
		}
	}
	return out
}
