// Package flow defines the session state machine: a (Phase, Tier) pair and a
// pure transition table keyed by (Phase, Event).
package flow

import (
	"fmt"
	"strings"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// Phase is the tier-independent part of a session state.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseBundle
	PhaseReview
	PhaseReviewFail
	PhaseSuppRound
	PhaseRoundReview
	PhaseReviewSupp
	PhaseReviewSuppFail
	PhaseEnd
)

var phaseNames = [...]string{
	PhaseInit:           "INIT",
	PhaseBundle:         "BUNDLE",
	PhaseReview:         "REVIEW",
	PhaseReviewFail:     "REVIEW_FAIL",
	PhaseSuppRound:      "SUPP_ROUND",
	PhaseRoundReview:    "ROUND_REVIEW",
	PhaseReviewSupp:     "REVIEW_SUPP",
	PhaseReviewSuppFail: "REVIEW_SUPP_FAIL",
	PhaseEnd:            "END",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Tiered reports whether states in this phase carry a tier.
func (p Phase) Tiered() bool {
	return p != PhaseInit && p != PhaseEnd
}

// State is a session's position in the flow. Tier is meaningful only for
// tiered phases; END keeps the tier the session finished on.
type State struct {
	Phase Phase
	Tier  curriculum.Tier
}

// Initial is the state of a freshly created session.
var Initial = State{Phase: PhaseInit, Tier: curriculum.FirstTier}

// String returns the canonical name, e.g. "BUNDLE_RECOGNITION" or "END".
func (s State) String() string {
	if !s.Phase.Tiered() {
		return s.Phase.String()
	}
	return s.Phase.String() + "_" + strings.ToUpper(s.Tier.String())
}

// Terminal reports whether the session has ended.
func (s State) Terminal() bool {
	return s.Phase == PhaseEnd
}

// ParseState parses a canonical state name.
func ParseState(name string) (State, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "INIT":
		return Initial, nil
	case "END":
		return State{Phase: PhaseEnd, Tier: curriculum.LastTier}, nil
	}
	for p := PhaseBundle; p < PhaseEnd; p++ {
		prefix := p.String() + "_"
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		tier, err := curriculum.ParseTier(strings.TrimPrefix(name, prefix))
		if err != nil {
			continue
		}
		return State{Phase: p, Tier: tier}, nil
	}
	return State{}, fmt.Errorf("unknown state %q", name)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	parsed, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
