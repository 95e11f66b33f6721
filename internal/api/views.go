package api

import (
	"time"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/session"
)

type createSessionRequest struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

type answerItem struct {
	QuestionID string `json:"question_id"`
	Choice     int    `json:"choice"`
	ElapsedMs  int64  `json:"elapsed_ms"`
}

type answersRequest struct {
	Answers []answerItem `json:"answers"`
}

func (r answersRequest) submissions() []evaluator.Submission {
	subs := make([]evaluator.Submission, len(r.Answers))
	for i, a := range r.Answers {
		subs[i] = evaluator.Submission{
			QuestionID: a.QuestionID,
			Choice:     a.Choice,
			Elapsed:    time.Duration(a.ElapsedMs) * time.Millisecond,
		}
	}
	return subs
}

// questionView is a question as shown before it is answered: no correct
// index, no explanation.
type questionView struct {
	ID          string            `json:"id"`
	LessonID    string            `json:"lesson_id"`
	Tier        curriculum.Tier   `json:"tier"`
	Prompt      string            `json:"prompt"`
	Choices     []string          `json:"choices"`
	Placeholder bool              `json:"placeholder,omitempty"`
	Origin      problemgen.Origin `json:"origin"`
}

func questionViews(qs []problemgen.Question) []questionView {
	out := make([]questionView, len(qs))
	for i, q := range qs {
		out[i] = questionView{
			ID: q.ID, LessonID: q.LessonID, Tier: q.Tier, Prompt: q.Prompt,
			Choices: q.Choices, Placeholder: q.Placeholder, Origin: q.Origin,
		}
	}
	return out
}

type roundView struct {
	Number   int            `json:"number"`
	MissedID string         `json:"missed_id"`
	Items    []questionView `json:"items"`
	Degraded bool           `json:"degraded,omitempty"`
}

type outcomeView struct {
	SessionID   string                `json:"session_id"`
	State       flow.State            `json:"state"`
	Bundle      []questionView        `json:"bundle,omitempty"`
	Round       *roundView            `json:"round,omitempty"`
	Result      *evaluator.Result     `json:"result,omitempty"`
	RoundResult *session.RoundResult  `json:"round_result,omitempty"`
	NeedsReview bool                  `json:"needs_review"`
	Terminal    bool                  `json:"terminal"`
	Replayed    bool                  `json:"replayed,omitempty"`
}

func newOutcomeView(o session.Outcome) outcomeView {
	v := outcomeView{
		SessionID:   o.SessionID,
		State:       o.State,
		Result:      o.Result,
		RoundResult: o.RoundResult,
		NeedsReview: o.NeedsReview,
		Terminal:    o.Terminal,
		Replayed:    o.Replayed,
	}
	if len(o.Bundle) > 0 {
		v.Bundle = questionViews(o.Bundle)
	}
	if o.Round != nil {
		v.Round = &roundView{
			Number:   o.Round.Number,
			MissedID: o.Round.Missed.ID,
			Items:    questionViews(o.Round.Items),
			Degraded: o.Round.Degraded,
		}
	}
	return v
}
