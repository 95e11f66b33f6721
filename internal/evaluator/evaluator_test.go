package evaluator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
)

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testBundle(tier curriculum.Tier) []problemgen.Question {
	lessons := []string{"place-value", "add-sub", "multiplication", "fractions", "measurement"}
	qs := make([]problemgen.Question, len(lessons))
	for i, l := range lessons {
		qs[i] = problemgen.Question{
			ID:           fmt.Sprintf("q%d", i+1),
			LessonID:     l,
			Tier:         tier,
			Prompt:       "Prompt " + l,
			Choices:      []string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
			Origin:       problemgen.OriginBank,
		}
	}
	return qs
}

// answer builds submissions; wrong lists the indexes answered incorrectly.
func answer(bundle []problemgen.Question, wrong ...int) []Submission {
	miss := make(map[int]bool)
	for _, w := range wrong {
		miss[w] = true
	}
	subs := make([]Submission, len(bundle))
	for i, q := range bundle {
		choice := q.CorrectIndex
		if miss[i] {
			choice = (choice + 1) % 4
		}
		subs[i] = Submission{QuestionID: q.ID, Choice: choice, Elapsed: time.Duration(i+1) * time.Second, SubmittedAt: at}
	}
	return subs
}

func TestEvaluateBoundary(t *testing.T) {
	tier := curriculum.TierRecognition
	bundle := testBundle(tier)

	tests := []struct {
		name      string
		wrong     []int
		passed    bool
		next      flow.State
		weak      []string
		wrongIDs  []string
		wantScore int
	}{
		{
			name:      "all correct",
			passed:    true,
			next:      flow.State{Phase: flow.PhaseReview, Tier: tier},
			weak:      []string{},
			wantScore: 5,
		},
		{
			name:      "four of five passes",
			wrong:     []int{2},
			passed:    true,
			next:      flow.State{Phase: flow.PhaseReview, Tier: tier},
			weak:      []string{"multiplication"},
			wrongIDs:  []string{"q3"},
			wantScore: 4,
		},
		{
			name:      "three of five fails",
			wrong:     []int{4, 0},
			passed:    false,
			next:      flow.State{Phase: flow.PhaseReviewFail, Tier: tier},
			weak:      []string{"place-value", "measurement"},
			wrongIDs:  []string{"q1", "q5"},
			wantScore: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(tier, bundle, answer(bundle, tt.wrong...), DefaultPolicy())
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, res.Score)
			assert.Equal(t, 5, res.Total)
			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.next, res.NextState)
			assert.Equal(t, tt.weak, res.WeakLessons)

			var ids []string
			for _, w := range res.WrongAnswers {
				ids = append(ids, w.Question.ID)
				assert.False(t, w.Answer.Correct)
				assert.Equal(t, w.Question.LessonID, w.Answer.LessonID)
			}
			assert.Equal(t, tt.wrongIDs, ids)
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	bundle := testBundle(curriculum.TierComprehension)
	subs := answer(bundle, 1, 3)

	first, err := Evaluate(curriculum.TierComprehension, bundle, subs, DefaultPolicy())
	require.NoError(t, err)
	for range 3 {
		again, err := Evaluate(curriculum.TierComprehension, bundle, subs, DefaultPolicy())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	// Mutating the result must not leak into the inputs.
	first.WrongAnswers[0].Question.Choices[0] = "mutated"
	assert.Equal(t, "a", bundle[1].Choices[0])
}

func TestEvaluateWeakLessonsDedup(t *testing.T) {
	bundle := testBundle(curriculum.TierApplication)
	bundle[3].LessonID = "add-sub"
	res, err := Evaluate(curriculum.TierApplication, bundle, answer(bundle, 3, 1, 0), DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, []string{"place-value", "add-sub"}, res.WeakLessons)
	assert.Len(t, res.WrongAnswers, 3)
}

func TestEvaluateConfigurableThreshold(t *testing.T) {
	bundle := testBundle(curriculum.TierRecognition)
	policy := Policy{BundlePassScore: 5, RoundPassRatio: 0.8}
	res, err := Evaluate(curriculum.TierRecognition, bundle, answer(bundle, 0), policy)
	require.NoError(t, err)
	assert.False(t, res.Passed)
}

func TestEvaluateRejects(t *testing.T) {
	bundle := testBundle(curriculum.TierRecognition)

	tests := []struct {
		name   string
		mutate func([]Submission) []Submission
	}{
		{"unknown id", func(s []Submission) []Submission { s[0].QuestionID = "nope"; return s }},
		{"choice too high", func(s []Submission) []Submission { s[1].Choice = 4; return s }},
		{"negative choice", func(s []Submission) []Submission { s[1].Choice = -1; return s }},
		{"duplicate", func(s []Submission) []Submission { s[1].QuestionID = s[0].QuestionID; return s }},
		{"missing", func(s []Submission) []Submission { return s[:4] }},
		{"negative elapsed", func(s []Submission) []Submission { s[2].Elapsed = -time.Second; return s }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(curriculum.TierRecognition, bundle, tt.mutate(answer(bundle)), DefaultPolicy())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSubmission)
		})
	}

	_, err := Evaluate(curriculum.TierRecognition, nil, nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestGradeKeepsSubmissionOrder(t *testing.T) {
	bundle := testBundle(curriculum.TierRecognition)
	subs := answer(bundle)
	subs[0], subs[4] = subs[4], subs[0]

	answers, err := Grade(bundle, subs, 2)
	require.NoError(t, err)
	assert.Equal(t, "q5", answers[0].QuestionID)
	assert.Equal(t, "q1", answers[4].QuestionID)
	for _, a := range answers {
		assert.Equal(t, 2, a.Round)
		assert.Equal(t, at, a.SubmittedAt)
	}
}

func TestRoundsPassed(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		correct, total int
		want           bool
	}{
		{4, 5, true},
		{8, 10, true},
		{800, 1000, true},
		{799, 1000, false},
		{3, 5, false},
		{11, 15, false},
		{12, 15, true},
		{0, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.correct, tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, p.RoundsPassed(tt.correct, tt.total))
		})
	}
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{BundlePassScore: 0, RoundPassRatio: 0.8}.Validate())
	assert.Error(t, Policy{BundlePassScore: 4, RoundPassRatio: 1.2}.Validate())
}
