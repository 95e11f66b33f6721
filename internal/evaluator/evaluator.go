// Package evaluator scores answer sets against the pass policy. Everything
// here is pure: the same inputs always produce the same Result.
package evaluator

import (
	"fmt"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
)

// WrongAnswer pairs a missed answer with the question it missed.
type WrongAnswer struct {
	Answer   Answer              `json:"answer"`
	Question problemgen.Question `json:"question"`
}

// Result is the verdict on one primary bundle.
type Result struct {
	Tier         curriculum.Tier `json:"tier"`
	Score        int             `json:"score"`
	Total        int             `json:"total"`
	Passed       bool            `json:"passed"`
	WeakLessons  []string        `json:"weak_lessons"`
	WrongAnswers []WrongAnswer   `json:"wrong_answers"`
	Answers      []Answer        `json:"answers"`
	NextState    flow.State      `json:"next_state"`
}

// Evaluate grades a bundle submission for tier and derives the next state
// from the transition table.
func Evaluate(tier curriculum.Tier, bundle []problemgen.Question, subs []Submission, policy Policy) (Result, error) {
	if len(bundle) == 0 {
		return Result{}, &SubmissionError{Reason: "no bundle to evaluate"}
	}
	answers, err := Grade(bundle, subs, 0)
	if err != nil {
		return Result{}, err
	}

	byID := make(map[string]problemgen.Question, len(bundle))
	for _, q := range bundle {
		byID[q.ID] = q
	}

	res := Result{
		Tier:         tier,
		Score:        CountCorrect(answers),
		Total:        len(answers),
		WeakLessons:  WeakLessons(answers),
		WrongAnswers: []WrongAnswer{},
		Answers:      answers,
	}
	for _, a := range answers {
		if !a.Correct {
			res.WrongAnswers = append(res.WrongAnswers, WrongAnswer{Answer: a, Question: byID[a.QuestionID].Clone()})
		}
	}
	if res.WeakLessons == nil {
		res.WeakLessons = []string{}
	}
	res.Passed = policy.BundlePassed(res.Score)

	next, err := flow.Next(flow.State{Phase: flow.PhaseBundle, Tier: tier}, flow.BundleOutcome(res.Passed))
	if err != nil {
		return Result{}, fmt.Errorf("evaluate: %w", err)
	}
	res.NextState = next
	return res, nil
}
