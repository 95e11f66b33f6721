package report

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/session"
)

func testReport() session.Report {
	failed := false
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return session.Report{
		SessionID: "s1",
		Identity:  session.Identity{Name: "Ada"},
		Tiers: []session.TierReport{
			{Tier: curriculum.TierRecognition, BundleScore: 5, BundleTotal: 5, Passed: true},
			{Tier: curriculum.TierComprehension, BundleScore: 2, BundleTotal: 5, Rounds: 3,
				RemediationCorrect: 9, RemediationTotal: 15, RemediationPassed: &failed},
		},
		Lessons: []review.LessonStats{
			{LessonID: "fractions", Name: "Fractions", Count: 4, Correct: 4, Accuracy: 1, Strong: true},
		},
		Overall:         review.Overall{Count: 25, Correct: 16, Accuracy: 0.64},
		Recommendations: []string{"Session complete: 16 of 25 answers correct."},
		StartedAt:       start,
		EndedAt:         start.Add(12 * time.Minute),
	}
}

func TestView(t *testing.T) {
	view := New(testReport()).View(100, 40)
	for _, want := range []string{"Ada", "Recognition", "Comprehension", "Fractions", "16 of 25"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTierLine(t *testing.T) {
	r := testReport()
	if line := TierLine(r.Tiers[0]); strings.Contains(line, "rounds") {
		t.Errorf("passed tier should not list rounds: %q", line)
	}
	if line := TierLine(r.Tiers[1]); !strings.Contains(line, "rounds 3, 9/15") {
		t.Errorf("remediated tier line = %q", line)
	}
}

func TestEnterQuits(t *testing.T) {
	s := New(testReport())
	_, cmd := s.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}
