package remediation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/problemgen"
)

var (
	// ErrUnknownRound is returned for a round number outside the plan.
	ErrUnknownRound = errors.New("unknown round")

	// ErrRoundNotActive is returned when a round other than the current
	// one is submitted or advanced past.
	ErrRoundNotActive = errors.New("round not active")

	// ErrRoundIncomplete is returned when advancing past an unanswered round.
	ErrRoundIncomplete = errors.New("round not complete")
)

// Round is one remediation round built from a single missed question.
type Round struct {
	Number   int                   `json:"number"` // 1-based
	Missed   problemgen.Question   `json:"missed"`
	Items    []problemgen.Question `json:"items"`
	Answers  []evaluator.Answer    `json:"answers"`
	Complete bool                  `json:"complete"`

	// Degraded marks rounds topped up with duplicates or placeholders.
	Degraded bool `json:"degraded,omitempty"`
}

// Correct returns the number of correct answers in the round.
func (r Round) Correct() int {
	return evaluator.CountCorrect(r.Answers)
}

// Clone returns a deep copy of r.
func (r Round) Clone() Round {
	r.Missed = r.Missed.Clone()
	r.Items = problemgen.CloneAll(r.Items)
	r.Answers = slices.Clone(r.Answers)
	return r
}

// Plan is the ordered list of rounds for one tier plus a cursor at the
// active round. A Plan is a value owned by its session; callers mutate a
// Clone and commit it.
type Plan struct {
	Tier   curriculum.Tier `json:"tier"`
	Rounds []Round         `json:"rounds"`

	// Cursor indexes the active round; it equals len(Rounds) once every
	// round has been advanced past.
	Cursor int `json:"cursor"`
}

// Clone returns a deep copy of p.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	c := *p
	c.Rounds = make([]Round, len(p.Rounds))
	for i, r := range p.Rounds {
		c.Rounds[i] = r.Clone()
	}
	return &c
}

// Current returns the active round. ok is false once the plan is done.
func (p *Plan) Current() (Round, bool) {
	if p == nil || p.Cursor >= len(p.Rounds) {
		return Round{}, false
	}
	return p.Rounds[p.Cursor].Clone(), true
}

// Round returns the round with the given 1-based number.
func (p *Plan) Round(number int) (Round, bool) {
	if p == nil || number < 1 || number > len(p.Rounds) {
		return Round{}, false
	}
	return p.Rounds[number-1].Clone(), true
}

// Done reports whether the cursor has moved past the last round.
func (p *Plan) Done() bool {
	return p == nil || p.Cursor >= len(p.Rounds)
}

// Submit records answers for the active round and marks it complete.
// Submitting again overwrites the previous answers.
func (p *Plan) Submit(number int, answers []evaluator.Answer) error {
	if err := p.checkActive(number); err != nil {
		return err
	}
	r := &p.Rounds[number-1]
	r.Answers = slices.Clone(answers)
	r.Complete = true
	return nil
}

// Advance moves past the completed active round. hasMore reports whether
// another round follows; next is that round.
func (p *Plan) Advance(number int) (hasMore bool, next Round, err error) {
	if err := p.checkActive(number); err != nil {
		return false, Round{}, err
	}
	if !p.Rounds[number-1].Complete {
		return false, Round{}, fmt.Errorf("round %d: %w", number, ErrRoundIncomplete)
	}
	p.Cursor++
	next, hasMore = p.Current()
	return hasMore, next, nil
}

func (p *Plan) checkActive(number int) error {
	if p == nil || number < 1 || number > len(p.Rounds) {
		return fmt.Errorf("round %d: %w", number, ErrUnknownRound)
	}
	if number-1 != p.Cursor {
		return fmt.Errorf("round %d: %w", number, ErrRoundNotActive)
	}
	return nil
}

// Answers returns every remediation answer in round order.
func (p *Plan) Answers() []evaluator.Answer {
	if p == nil {
		return nil
	}
	var out []evaluator.Answer
	for _, r := range p.Rounds {
		out = append(out, r.Answers...)
	}
	return out
}

// Tally returns correct and total answers across all rounds.
func (p *Plan) Tally() (correct, total int) {
	answers := p.Answers()
	return evaluator.CountCorrect(answers), len(answers)
}

// Passed applies the aggregate remediation threshold.
func (p *Plan) Passed(policy evaluator.Policy) bool {
	return policy.RoundsPassed(p.Tally())
}

// QuestionIDs returns the ids of every item in the plan.
func (p *Plan) QuestionIDs() []string {
	if p == nil {
		return nil
	}
	var ids []string
	for _, r := range p.Rounds {
		ids = append(ids, problemgen.IDs(r.Items)...)
	}
	return ids
}
