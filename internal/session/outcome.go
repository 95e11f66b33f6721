package session

import (
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/remediation"
)

// RoundResult is the outcome of one submitted remediation round.
type RoundResult struct {
	Number  int                `json:"number"`
	Correct int                `json:"correct"`
	Total   int                `json:"total"`
	Answers []evaluator.Answer `json:"answers"`

	// Remaining counts rounds after this one.
	Remaining int `json:"remaining"`
}

// Outcome is what an operation hands back: the new state plus the next
// artifact for the learner.
type Outcome struct {
	SessionID string     `json:"session_id"`
	State     flow.State `json:"state"`

	// Bundle is set in BUNDLE states.
	Bundle []problemgen.Question `json:"bundle,omitempty"`

	// Round is the active remediation round in SUPP_ROUND states.
	Round *remediation.Round `json:"round,omitempty"`

	// Result is set by bundle submission.
	Result *evaluator.Result `json:"result,omitempty"`

	// RoundResult is set by round submission.
	RoundResult *RoundResult `json:"round_result,omitempty"`

	// NeedsReview is set in review states.
	NeedsReview bool `json:"needs_review"`

	// Terminal is set once the session has ended.
	Terminal bool `json:"terminal"`

	// Replayed marks an outcome served from stored state without a new
	// transition.
	Replayed bool `json:"replayed,omitempty"`
}

// current describes the artifact the session is waiting on.
func current(s *Session) Outcome {
	o := Outcome{SessionID: s.ID, State: s.State}
	rec := s.Tiers[s.Tier]
	switch s.State.Phase {
	case flow.PhaseBundle:
		if rec != nil {
			o.Bundle = problemgen.CloneAll(rec.Bundle)
		}
	case flow.PhaseSuppRound:
		if r, ok := s.Plan().Current(); ok {
			o.Round = &r
		}
	case flow.PhaseReview, flow.PhaseReviewFail:
		o.NeedsReview = true
		if rec != nil && rec.Result != nil {
			res := cloneResult(*rec.Result)
			o.Result = &res
		}
	case flow.PhaseRoundReview:
		o.NeedsReview = true
		if r, ok := s.Plan().Current(); ok {
			o.RoundResult = roundResult(s.Plan(), r)
		}
	case flow.PhaseReviewSupp, flow.PhaseReviewSuppFail:
		o.NeedsReview = true
	case flow.PhaseEnd:
		o.Terminal = true
	}
	return o
}

func roundResult(p *remediation.Plan, r remediation.Round) *RoundResult {
	return &RoundResult{
		Number:    r.Number,
		Correct:   r.Correct(),
		Total:     len(r.Answers),
		Answers:   r.Answers,
		Remaining: len(p.Rounds) - r.Number,
	}
}
