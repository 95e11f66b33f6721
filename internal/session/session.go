// Package session is the orchestration engine: it owns every session's
// state and is the only code allowed to change it.
package session

import (
	"maps"
	"slices"
	"time"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/remediation"
	"github.com/abhisek/tierloop/internal/review"
)

// Identity describes the learner. The engine never interprets it.
type Identity struct {
	Name  string `json:"name"`
	Grade string `json:"grade,omitempty"`
}

// TierRecord is everything a session did at one tier.
type TierRecord struct {
	// Bundle is the primary bundle presented for the tier.
	Bundle []problemgen.Question `json:"bundle"`

	// Result is the graded bundle outcome, nil until submitted.
	Result *evaluator.Result `json:"result,omitempty"`

	// Plan holds the remediation rounds, nil unless the bundle failed and
	// the learner continued past the failure review.
	Plan *remediation.Plan `json:"plan,omitempty"`

	// RemediationPassed is set once every round has been continued past.
	RemediationPassed *bool `json:"remediation_passed,omitempty"`
}

func (r *TierRecord) clone() *TierRecord {
	if r == nil {
		return nil
	}
	c := &TierRecord{
		Bundle: problemgen.CloneAll(r.Bundle),
		Plan:   r.Plan.Clone(),
	}
	if r.Result != nil {
		res := cloneResult(*r.Result)
		c.Result = &res
	}
	if r.RemediationPassed != nil {
		v := *r.RemediationPassed
		c.RemediationPassed = &v
	}
	return c
}

func cloneResult(r evaluator.Result) evaluator.Result {
	r.WeakLessons = slices.Clone(r.WeakLessons)
	r.Answers = slices.Clone(r.Answers)
	wrong := make([]evaluator.WrongAnswer, len(r.WrongAnswers))
	for i, w := range r.WrongAnswers {
		wrong[i] = evaluator.WrongAnswer{Answer: w.Answer, Question: w.Question.Clone()}
	}
	r.WrongAnswers = wrong
	return r
}

// Session is the root aggregate. Values handed out by the Service are
// snapshots; mutating them has no effect on the stored session.
type Session struct {
	ID       string          `json:"id"`
	Identity Identity        `json:"identity"`
	State    flow.State      `json:"state"`
	Tier     curriculum.Tier `json:"tier"`

	// Answers is the append-only answer log, partitioned by tier. Round
	// answers join the log when the learner continues past the round.
	Answers map[curriculum.Tier][]evaluator.Answer `json:"answers"`

	// Presented lists every question id shown so far, in order.
	Presented []string `json:"presented"`

	Tiers   map[curriculum.Tier]*TierRecord `json:"tiers"`
	Reviews []review.Record                 `json:"reviews"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version counts committed transitions.
	Version int `json:"version"`
}

func newSession(id string, identity Identity, now time.Time) *Session {
	return &Session{
		ID:        id,
		Identity:  identity,
		State:     flow.Initial,
		Tier:      flow.Initial.Tier,
		Answers:   make(map[curriculum.Tier][]evaluator.Answer),
		Tiers:     make(map[curriculum.Tier]*TierRecord),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Answers = make(map[curriculum.Tier][]evaluator.Answer, len(s.Answers))
	for t, a := range s.Answers {
		c.Answers[t] = slices.Clone(a)
	}
	c.Presented = slices.Clone(s.Presented)
	c.Tiers = make(map[curriculum.Tier]*TierRecord, len(s.Tiers))
	for t, r := range s.Tiers {
		c.Tiers[t] = r.clone()
	}
	c.Reviews = slices.Clone(s.Reviews)
	return &c
}

// record returns the record for tier, creating it.
func (s *Session) record(tier curriculum.Tier) *TierRecord {
	r, ok := s.Tiers[tier]
	if !ok {
		r = &TierRecord{}
		s.Tiers[tier] = r
	}
	return r
}

// TierRecord returns the record for tier, or nil.
func (s *Session) TierRecord(tier curriculum.Tier) *TierRecord {
	return s.Tiers[tier]
}

// Plan returns the remediation plan of the current tier, or nil.
func (s *Session) Plan() *remediation.Plan {
	if r := s.Tiers[s.Tier]; r != nil {
		return r.Plan
	}
	return nil
}

// AllAnswers returns the whole log in tier order.
func (s *Session) AllAnswers() []evaluator.Answer {
	var out []evaluator.Answer
	for _, t := range curriculum.AllTiers() {
		out = append(out, s.Answers[t]...)
	}
	return out
}

// BundleAnswers returns the primary-bundle answers logged for tier.
func (s *Session) BundleAnswers(tier curriculum.Tier) []evaluator.Answer {
	return filterAnswers(s.Answers[tier], func(a evaluator.Answer) bool { return a.Round == 0 })
}

// RemediationAnswers returns the sealed remediation answers for tier.
func (s *Session) RemediationAnswers(tier curriculum.Tier) []evaluator.Answer {
	return filterAnswers(s.Answers[tier], func(a evaluator.Answer) bool { return a.Round > 0 })
}

func filterAnswers(in []evaluator.Answer, keep func(evaluator.Answer) bool) []evaluator.Answer {
	var out []evaluator.Answer
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// Questions indexes every question the session presented, by id.
func (s *Session) Questions() map[string]problemgen.Question {
	out := make(map[string]problemgen.Question)
	for _, r := range s.Tiers {
		for _, q := range r.Bundle {
			out[q.ID] = q
		}
		if r.Plan == nil {
			continue
		}
		for _, round := range r.Plan.Rounds {
			for _, q := range round.Items {
				out[q.ID] = q
			}
		}
	}
	return out
}

// LastReview returns the latest history record for tier that is not a
// per-round review.
func (s *Session) LastReview(tier curriculum.Tier) (review.Record, bool) {
	for _, r := range slices.Backward(s.Reviews) {
		if r.Tier == tier && r.Kind != flow.ReviewRound {
			return r, true
		}
	}
	return review.Record{}, false
}

func (s *Session) present(qs []problemgen.Question) {
	seen := make(map[string]bool, len(s.Presented))
	for _, id := range s.Presented {
		seen[id] = true
	}
	for _, q := range qs {
		if !seen[q.ID] {
			seen[q.ID] = true
			s.Presented = append(s.Presented, q.ID)
		}
	}
}

// TierResults returns the recorded tiers in ascending order.
func (s *Session) TierResults() []curriculum.Tier {
	tiers := slices.Collect(maps.Keys(s.Tiers))
	slices.Sort(tiers)
	return tiers
}
