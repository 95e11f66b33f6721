package session

import (
	"context"
	"time"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/review"
)

// TierReport summarizes one tier of an ended session.
type TierReport struct {
	Tier        curriculum.Tier `json:"tier"`
	BundleScore int             `json:"bundle_score"`
	BundleTotal int             `json:"bundle_total"`
	Passed      bool            `json:"passed"`

	// Remediation fields are zero unless the bundle failed.
	Rounds             int   `json:"rounds,omitempty"`
	RemediationCorrect int   `json:"remediation_correct,omitempty"`
	RemediationTotal   int   `json:"remediation_total,omitempty"`
	RemediationPassed  *bool `json:"remediation_passed,omitempty"`
}

// Report is the terminal summary of an ended session.
type Report struct {
	SessionID       string               `json:"session_id"`
	Identity        Identity             `json:"identity"`
	Tiers           []TierReport         `json:"tiers"`
	Lessons         []review.LessonStats `json:"lessons"`
	Overall         review.Overall       `json:"overall"`
	Recommendations []string             `json:"recommendations"`
	NarrativeSource string               `json:"narrative_source"`
	StartedAt       time.Time            `json:"started_at"`
	EndedAt         time.Time            `json:"ended_at"`
}

// Report builds the terminal report. Only ended sessions have one.
func (s *Service) Report(ctx context.Context, id string) (Report, error) {
	ctx = llm.WithSession(ctx, id)
	sess, err := s.store.Get(id)
	if err != nil {
		return Report{}, err
	}
	if !sess.State.Terminal() {
		return Report{}, rejectf(sess, OpReport, "session has not ended")
	}

	rep := Report{
		SessionID: sess.ID,
		Identity:  sess.Identity,
		StartedAt: sess.CreatedAt,
		EndedAt:   sess.UpdatedAt,
	}
	for _, tier := range sess.TierResults() {
		rec := sess.Tiers[tier]
		if rec.Result == nil {
			continue
		}
		tr := TierReport{
			Tier:        tier,
			BundleScore: rec.Result.Score,
			BundleTotal: rec.Result.Total,
			Passed:      rec.Result.Passed,
		}
		if rec.Plan != nil {
			tr.Rounds = len(rec.Plan.Rounds)
			tr.RemediationCorrect, tr.RemediationTotal = rec.Plan.Tally()
			if rec.RemediationPassed != nil {
				v := *rec.RemediationPassed
				tr.RemediationPassed = &v
			}
		}
		rep.Tiers = append(rep.Tiers, tr)
	}

	final, err := s.reviews.Compose(ctx, review.Request{
		SessionID: sess.ID,
		Tier:      sess.Tier,
		Kind:      flow.ReviewNone,
		Passed:    finished(rep.Tiers),
		Final:     true,
		Answers:   sess.AllAnswers(),
		Questions: sess.Questions(),
	})
	if err != nil {
		return Report{}, err
	}
	rep.Lessons = final.Lessons
	rep.Overall = final.Overall
	rep.Recommendations = final.Recommendations
	rep.NarrativeSource = final.NarrativeSource
	return rep, nil
}

// finished reports whether every tier was passed, directly or through
// remediation.
func finished(tiers []TierReport) bool {
	if len(tiers) == 0 {
		return false
	}
	for _, t := range tiers {
		if !t.Passed && (t.RemediationPassed == nil || !*t.RemediationPassed) {
			return false
		}
	}
	return true
}
