package remediation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/itembank"
	"github.com/abhisek/tierloop/internal/problemgen"
)

var testLessons = []curriculum.Lesson{
	{ID: "place-value", Name: "Place value"},
	{ID: "add-sub", Name: "Addition and subtraction"},
	{ID: "fractions", Name: "Fractions"},
}

const tier = curriculum.TierComprehension

func bankWith(per int) *itembank.Bank {
	var qs []problemgen.Question
	for _, l := range testLessons {
		qs = append(qs, problemgen.SyntheticQuestions(l.ID, tier, "bank", per)...)
	}
	return itembank.New(testLessons, qs)
}

func wrongFor(lessons ...string) []evaluator.WrongAnswer {
	out := make([]evaluator.WrongAnswer, len(lessons))
	for i, l := range lessons {
		q := problemgen.SyntheticQuestions(l, tier, fmt.Sprintf("missed%d", i), 1)[0]
		q.Origin = problemgen.OriginBank
		out[i] = evaluator.WrongAnswer{
			Answer:   evaluator.Answer{QuestionID: q.ID, LessonID: l, Tier: tier, Choice: (q.CorrectIndex + 1) % 4},
			Question: q,
		}
	}
	return out
}

func newManager(bank Source, gen problemgen.Generator, opts ...Option) *Manager {
	if gen != nil {
		opts = append(opts, WithGenerator(problemgen.NewAdapter(gen, problemgen.WithTimeout(200*time.Millisecond))))
	}
	return NewManager(bank, curriculum.NewCatalog(testLessons), opts...)
}

func assertRoundShape(t *testing.T, r Round, size int) {
	t.Helper()
	require.Len(t, r.Items, size)
	ids := problemgen.IDs(r.Items)
	assert.Len(t, slices.Compact(slices.Sorted(slices.Values(ids))), size, "distinct ids")
	for _, q := range r.Items {
		assert.Len(t, q.Choices, problemgen.ChoiceCount)
		assert.True(t, q.Valid(), q.ID)
		assert.Equal(t, r.Missed.LessonID, q.LessonID)
		assert.Equal(t, tier, q.Tier)
	}
}

func TestStartRounds_Isomorphs(t *testing.T) {
	gen := &problemgen.StubGenerator{}
	m := newManager(bankWith(3), gen)

	plan, err := m.StartRounds(context.Background(), wrongFor("place-value", "fractions"), tier, nil)
	require.NoError(t, err)
	require.Len(t, plan.Rounds, 2)
	for i, r := range plan.Rounds {
		assert.Equal(t, i+1, r.Number)
		assertRoundShape(t, r, DefaultRoundSize)
		assert.False(t, r.Degraded)
		for _, q := range r.Items {
			assert.Equal(t, problemgen.OriginGenerated, q.Origin)
		}
	}
	assert.Equal(t, "fractions", plan.Rounds[1].Missed.LessonID)
	assert.Equal(t, 2, gen.Calls("isomorphs"))
	assert.Equal(t, 0, gen.Calls("topic"))
}

func TestStartRounds_TotalGeneratorFailure(t *testing.T) {
	gen := problemgen.NewFailingGenerator(errors.New("upstream down"))
	m := newManager(bankWith(2), gen)

	plan, err := m.StartRounds(context.Background(), wrongFor("place-value", "add-sub", "fractions"), tier, nil)
	require.NoError(t, err)
	require.Len(t, plan.Rounds, 3)
	for _, r := range plan.Rounds {
		assertRoundShape(t, r, DefaultRoundSize)
		assert.True(t, r.Degraded)
		banked := 0
		for _, q := range r.Items {
			if q.Origin == problemgen.OriginBank {
				banked++
			}
		}
		assert.Equal(t, 2, banked)
	}
}

func TestStartRounds_EmptyBankAndFailingGenerator(t *testing.T) {
	gen := problemgen.NewFailingGenerator(errors.New("upstream down"))
	m := newManager(itembank.New(testLessons, nil), gen)

	plan, err := m.StartRounds(context.Background(), wrongFor("add-sub", "add-sub"), tier, nil)
	require.NoError(t, err)
	for _, r := range plan.Rounds {
		assertRoundShape(t, r, DefaultRoundSize)
		for _, q := range r.Items {
			assert.True(t, q.Placeholder)
		}
	}
	assert.NotEqual(t, plan.Rounds[0].Items[0].ID, plan.Rounds[1].Items[0].ID)
}

func TestStartRounds_RoundsNeverShareBankItems(t *testing.T) {
	m := newManager(bankWith(6), nil)
	exclude := []string{fmt.Sprintf("bank-fractions-%s-1", tier)}

	plan, err := m.StartRounds(context.Background(), wrongFor("fractions", "fractions"), tier, exclude)
	require.NoError(t, err)

	var banked []string
	for _, r := range plan.Rounds {
		assertRoundShape(t, r, DefaultRoundSize)
		for _, q := range r.Items {
			if q.Origin == problemgen.OriginBank {
				banked = append(banked, q.ID)
			}
		}
	}
	assert.Len(t, banked, 5)
	assert.NotContains(t, banked, exclude[0])
	assert.Len(t, slices.Compact(slices.Sorted(slices.Values(banked))), 5)
}

func TestStartRounds_TopicTopUp(t *testing.T) {
	gen := &problemgen.StubGenerator{
		IsomorphsFunc: func(_ context.Context, src problemgen.Question, _ int) ([]problemgen.Question, error) {
			return problemgen.SyntheticQuestions(src.LessonID, src.Tier, "iso", 1), nil
		},
	}
	m := newManager(bankWith(1), gen)

	plan, err := m.StartRounds(context.Background(), wrongFor("place-value"), tier, nil)
	require.NoError(t, err)
	r := plan.Rounds[0]
	assertRoundShape(t, r, DefaultRoundSize)
	assert.False(t, r.Degraded)
	assert.Equal(t, 1, gen.Calls("topic"))
	assert.Equal(t, problemgen.OriginBank, r.Items[1].Origin)
}

func TestStartRounds_CustomSize(t *testing.T) {
	m := newManager(bankWith(1), nil, WithRoundSize(3))
	plan, err := m.StartRounds(context.Background(), wrongFor("add-sub"), tier, nil)
	require.NoError(t, err)
	assertRoundShape(t, plan.Rounds[0], 3)
	assert.Equal(t, 3, m.RoundSize())
}

func TestStartRounds_ContentUnavailable(t *testing.T) {
	m := newManager(itembank.New(testLessons, nil), nil, WithPlaceholders(false))
	_, err := m.StartRounds(context.Background(), wrongFor("add-sub"), tier, nil)
	assert.ErrorIs(t, err, problemgen.ErrContentUnavailable)
}

func answersFor(r Round, correct int) []evaluator.Answer {
	out := make([]evaluator.Answer, len(r.Items))
	for i, q := range r.Items {
		choice := q.CorrectIndex
		if i >= correct {
			choice = (choice + 1) % 4
		}
		out[i] = evaluator.Answer{QuestionID: q.ID, LessonID: q.LessonID, Tier: q.Tier, Round: r.Number,
			Choice: choice, CorrectIndex: q.CorrectIndex, Correct: choice == q.CorrectIndex}
	}
	return out
}

func testPlan(t *testing.T, rounds int) *Plan {
	t.Helper()
	lessons := make([]string, rounds)
	for i := range lessons {
		lessons[i] = testLessons[i%len(testLessons)].ID
	}
	plan, err := newManager(bankWith(2), &problemgen.StubGenerator{}).StartRounds(context.Background(), wrongFor(lessons...), tier, nil)
	require.NoError(t, err)
	return plan
}

func TestPlan_SubmitIsIdempotent(t *testing.T) {
	plan := testPlan(t, 2)
	cur, ok := plan.Current()
	require.True(t, ok)
	again, _ := plan.Current()
	assert.Equal(t, cur, again, "current is stable")

	ans := answersFor(cur, 4)
	require.NoError(t, plan.Submit(1, ans))
	snapshot := plan.Clone()
	require.NoError(t, plan.Submit(1, ans))
	assert.Equal(t, snapshot, plan)

	r, _ := plan.Round(1)
	assert.True(t, r.Complete)
	assert.Len(t, r.Answers, 5)
	assert.Equal(t, 4, r.Correct())

	require.NoError(t, plan.Submit(1, answersFor(cur, 2)))
	r, _ = plan.Round(1)
	assert.Len(t, r.Answers, 5, "resubmission overwrites")
	assert.Equal(t, 2, r.Correct())
}

func TestPlan_Progression(t *testing.T) {
	plan := testPlan(t, 2)

	_, _, err := plan.Advance(1)
	assert.ErrorIs(t, err, ErrRoundIncomplete)
	assert.ErrorIs(t, plan.Submit(2, nil), ErrRoundNotActive)
	assert.ErrorIs(t, plan.Submit(3, nil), ErrUnknownRound)

	r1, _ := plan.Current()
	require.NoError(t, plan.Submit(1, answersFor(r1, 5)))
	hasMore, next, err := plan.Advance(1)
	require.NoError(t, err)
	assert.True(t, hasMore)
	assert.Equal(t, 2, next.Number)

	assert.ErrorIs(t, plan.Submit(1, answersFor(r1, 5)), ErrRoundNotActive)

	require.NoError(t, plan.Submit(2, answersFor(next, 3)))
	hasMore, _, err = plan.Advance(2)
	require.NoError(t, err)
	assert.False(t, hasMore)
	assert.True(t, plan.Done())
	_, ok := plan.Current()
	assert.False(t, ok)

	correct, total := plan.Tally()
	assert.Equal(t, 8, correct)
	assert.Equal(t, 10, total)
	assert.True(t, plan.Passed(evaluator.DefaultPolicy()))
}

func TestPlan_AggregateBoundary(t *testing.T) {
	tests := []struct {
		name    string
		correct []int
		want    bool
	}{
		{"exactly 80 percent", []int{5, 3}, true},
		{"just below", []int{4, 3}, false},
		{"single round 4 of 5", []int{4}, true},
		{"single round 3 of 5", []int{3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := testPlan(t, len(tt.correct))
			for i, c := range tt.correct {
				r, _ := plan.Current()
				require.NoError(t, plan.Submit(i+1, answersFor(r, c)))
				_, _, err := plan.Advance(i + 1)
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, plan.Passed(evaluator.DefaultPolicy()))
		})
	}
}

func TestPlan_CloneIsDeep(t *testing.T) {
	plan := testPlan(t, 1)
	c := plan.Clone()
	c.Rounds[0].Items[0].Choices[0] = "changed"
	c.Cursor = 1
	assert.NotEqual(t, "changed", plan.Rounds[0].Items[0].Choices[0])
	assert.Equal(t, 0, plan.Cursor)
	assert.Len(t, plan.QuestionIDs(), DefaultRoundSize)
}
