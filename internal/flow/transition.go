package flow

import (
	"errors"
	"fmt"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// Event is an input to the state machine.
type Event int

const (
	EventStart Event = iota
	EventPass
	EventFail
	EventContinue
	EventRoundSubmitted
	EventNextRound
	EventRoundsPassed
	EventRoundsFailed
)

var eventNames = [...]string{
	EventStart:          "start",
	EventPass:           "pass",
	EventFail:           "fail",
	EventContinue:       "continue",
	EventRoundSubmitted: "round_submitted",
	EventNextRound:      "next_round",
	EventRoundsPassed:   "rounds_passed",
	EventRoundsFailed:   "rounds_failed",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("Event(%d)", int(e))
	}
	return eventNames[e]
}

// ErrInvalidTransition is matched by every *TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError reports an event delivered to a state that does not
// accept it.
type TransitionError struct {
	State State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s does not accept %s", e.State, e.Event)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

type key struct {
	phase Phase
	event Event
}

// target describes where an edge leads. advance moves to the next tier's
// bundle, or to END after the last tier.
type target struct {
	phase   Phase
	advance bool
}

var table = map[key]target{
	{PhaseInit, EventStart}:               {phase: PhaseBundle},
	{PhaseBundle, EventPass}:              {phase: PhaseReview},
	{PhaseBundle, EventFail}:              {phase: PhaseReviewFail},
	{PhaseReview, EventContinue}:          {advance: true},
	{PhaseReviewFail, EventContinue}:      {phase: PhaseSuppRound},
	{PhaseSuppRound, EventRoundSubmitted}: {phase: PhaseRoundReview},
	{PhaseRoundReview, EventNextRound}:    {phase: PhaseSuppRound},
	{PhaseRoundReview, EventRoundsPassed}: {phase: PhaseReviewSupp},
	{PhaseRoundReview, EventRoundsFailed}: {phase: PhaseReviewSuppFail},
	{PhaseReviewSupp, EventContinue}:      {advance: true},
	{PhaseReviewSuppFail, EventContinue}:  {advance: true},
}

// Next returns the state reached from s on e. It is pure; an unaccepted
// event yields a *TransitionError and the zero State.
func Next(s State, e Event) (State, error) {
	t, ok := table[key{s.Phase, e}]
	if !ok {
		return State{}, &TransitionError{State: s, Event: e}
	}
	if s.Phase == PhaseInit {
		return State{Phase: t.phase, Tier: curriculum.FirstTier}, nil
	}
	if t.advance {
		if next, ok := s.Tier.Next(); ok {
			return State{Phase: PhaseBundle, Tier: next}, nil
		}
		return State{Phase: PhaseEnd, Tier: s.Tier}, nil
	}
	return State{Phase: t.phase, Tier: s.Tier}, nil
}

// Accepts reports whether s has an edge for e.
func Accepts(s State, e Event) bool {
	_, ok := table[key{s.Phase, e}]
	return ok
}

// BundleOutcome maps a pass verdict to its event.
func BundleOutcome(passed bool) Event {
	if passed {
		return EventPass
	}
	return EventFail
}

// RoundsOutcome maps an aggregate remediation verdict to its event.
func RoundsOutcome(passed bool) Event {
	if passed {
		return EventRoundsPassed
	}
	return EventRoundsFailed
}
