// Package simulate plays whole sessions with a scripted learner. It backs
// the simulate command and doubles as an end-to-end check of the wiring.
package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/session"
)

// maxSteps bounds a run; a complete session takes far fewer.
const maxSteps = 500

// Learner answers correctly with probability Accuracy.
type Learner struct {
	Accuracy float64
	Rand     *rand.Rand
	Log      *logger.Logger
}

// Step is one engine call made during a run.
type Step struct {
	Op    string
	State flow.State
}

// Result is a finished run.
type Result struct {
	SessionID string
	Steps     []Step
	Report    session.Report
}

func (l *Learner) answers(qs []problemgen.Question) []evaluator.Submission {
	subs := make([]evaluator.Submission, len(qs))
	for i, q := range qs {
		choice := q.CorrectIndex
		if l.Rand.Float64() >= l.Accuracy {
			choice = (q.CorrectIndex + 1 + l.Rand.IntN(len(q.Choices)-1)) % len(q.Choices)
		}
		subs[i] = evaluator.Submission{QuestionID: q.ID, Choice: choice}
	}
	return subs
}

// Run creates a session for identity and plays it to the end.
func (l *Learner) Run(ctx context.Context, svc *session.Service, identity session.Identity) (Result, error) {
	log := logger.OrNop(l.Log)
	if l.Rand == nil {
		l.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	sess, err := svc.Create(ctx, identity)
	if err != nil {
		return Result{}, err
	}
	res := Result{SessionID: sess.ID}
	id := sess.ID

	out, err := svc.StartTier(ctx, id, curriculum.FirstTier)
	if err != nil {
		return res, err
	}
	res.Steps = append(res.Steps, Step{Op: session.OpStartTier, State: out.State})

	for range maxSteps {
		if out.Terminal {
			rep, err := svc.Report(ctx, id)
			if err != nil {
				return res, err
			}
			res.Report = rep
			return res, nil
		}

		var op string
		switch out.State.Phase {
		case flow.PhaseBundle:
			op = session.OpSubmitBundle
			out, err = svc.SubmitBundle(ctx, id, l.answers(out.Bundle))
		case flow.PhaseSuppRound:
			op = session.OpSubmitRound
			out, err = svc.SubmitRound(ctx, id, out.Round.Number, l.answers(out.Round.Items))
		case flow.PhaseRoundReview:
			n := out.RoundResult.Number
			if _, err = svc.RoundReview(ctx, id, n); err != nil {
				return res, err
			}
			op = session.OpContinueRound
			out, err = svc.ContinueRound(ctx, id, n)
		default:
			tier := out.State.Tier
			if _, err = svc.Review(ctx, id, tier); err != nil {
				return res, err
			}
			op = session.OpContinue
			out, err = svc.Continue(ctx, id, tier)
		}
		if err != nil {
			return res, fmt.Errorf("%s: %w", op, err)
		}
		log.Debug("simulated step", "session", id, "op", op, "state", out.State.String())
		res.Steps = append(res.Steps, Step{Op: op, State: out.State})
	}
	return res, fmt.Errorf("session %s did not end within %d steps", id, maxSteps)
}
