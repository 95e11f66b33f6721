// Package play is the screen that takes a learner through one session:
// bundles, reviews and remediation rounds, ending in the report.
package play

import (
	"context"
	"fmt"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/review"
	"github.com/abhisek/tierloop/internal/router"
	"github.com/abhisek/tierloop/internal/screen"
	"github.com/abhisek/tierloop/internal/screens/report"
	"github.com/abhisek/tierloop/internal/session"
	"github.com/abhisek/tierloop/internal/ui/components"
	"github.com/abhisek/tierloop/internal/ui/layout"
)

// Engine is the part of the session service the screen drives.
type Engine interface {
	StartTier(ctx context.Context, id string, tier curriculum.Tier) (session.Outcome, error)
	SubmitBundle(ctx context.Context, id string, subs []evaluator.Submission) (session.Outcome, error)
	Continue(ctx context.Context, id string, tier curriculum.Tier) (session.Outcome, error)
	SubmitRound(ctx context.Context, id string, number int, subs []evaluator.Submission) (session.Outcome, error)
	ContinueRound(ctx context.Context, id string, number int) (session.Outcome, error)
	Review(ctx context.Context, id string, tier curriculum.Tier) (review.Review, error)
	RoundReview(ctx context.Context, id string, number int) (review.Review, error)
	Report(ctx context.Context, id string) (session.Report, error)
}

type mode int

const (
	modeLoading mode = iota
	modeAnswering
	modeReviewing
	modeError
)

// Screen drives one session.
type Screen struct {
	ctx    context.Context
	engine Engine
	id     string
	now    func() time.Time

	mode mode
	out  session.Outcome

	items   []problemgen.Question
	index   int
	choice  components.MultiChoice
	subs    []evaluator.Submission
	shownAt time.Time

	review review.Review
	err    error
	retry  tea.Cmd
}

var (
	_ screen.Screen          = (*Screen)(nil)
	_ screen.KeyHintProvider = (*Screen)(nil)
	_ screen.StatusProvider  = (*Screen)(nil)
)

// New creates the screen for an existing session.
func New(ctx context.Context, engine Engine, sessionID string) *Screen {
	return &Screen{ctx: ctx, engine: engine, id: sessionID, now: time.Now}
}

func (s *Screen) Init() tea.Cmd {
	return s.call(func(ctx context.Context) (session.Outcome, error) {
		return s.engine.StartTier(ctx, s.id, curriculum.FirstTier)
	})
}

func (s *Screen) Title() string {
	if s.out.State.Phase == flow.PhaseInit {
		return "Session"
	}
	return s.out.State.Tier.DisplayName()
}

// Status shows the raw session state.
func (s *Screen) Status() string {
	return s.out.State.String()
}

func (s *Screen) KeyHints() []layout.KeyHint {
	switch s.mode {
	case modeAnswering:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Choose"},
			{Key: "A-D", Description: "Answer"},
			{Key: "Enter", Description: "Answer"},
		}
	case modeReviewing:
		return []layout.KeyHint{{Key: "Enter", Description: "Continue"}}
	case modeError:
		return []layout.KeyHint{{Key: "R", Description: "Retry"}, {Key: "Ctrl+C", Description: "Quit"}}
	default:
		return nil
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case outcomeMsg:
		if msg.Err != nil {
			return s, s.fail(msg.Err)
		}
		return s, s.apply(msg.Outcome)

	case reviewMsg:
		if msg.Err != nil {
			return s, s.fail(msg.Err)
		}
		s.review = msg.Review
		s.mode = modeReviewing
		return s, nil

	case reportMsg:
		if msg.Err != nil {
			return s, s.fail(msg.Err)
		}
		rep := report.New(msg.Report)
		return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: rep} }

	case tea.KeyMsg:
		return s, s.handleKey(msg)
	}
	return s, nil
}

func (s *Screen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch s.mode {
	case modeAnswering:
		s.choice = s.choice.Update(msg)
		if s.choice.Answered {
			return s.answer(s.choice.Chosen)
		}
	case modeReviewing:
		if msg.String() == "enter" {
			return s.proceed()
		}
	case modeError:
		if msg.String() == "r" && s.retry != nil {
			s.mode = modeLoading
			s.err = nil
			return s.retry
		}
	}
	return nil
}

// apply moves the screen to whatever the session now waits for.
func (s *Screen) apply(out session.Outcome) tea.Cmd {
	s.out = out
	s.err = nil
	switch {
	case out.Terminal:
		s.mode = modeLoading
		return s.fetchReport()
	case out.NeedsReview:
		s.mode = modeLoading
		return s.fetchReview()
	case len(out.Bundle) > 0:
		s.present(out.Bundle)
	case out.Round != nil:
		s.present(out.Round.Items)
	default:
		return s.fail(fmt.Errorf("nothing to show in state %s", out.State))
	}
	return nil
}

func (s *Screen) present(items []problemgen.Question) {
	s.mode = modeAnswering
	s.items = items
	s.index = 0
	s.subs = make([]evaluator.Submission, 0, len(items))
	s.show()
}

func (s *Screen) show() {
	q := s.items[s.index]
	s.choice = components.NewMultiChoice(q.Prompt, q.Choices)
	s.shownAt = s.now()
}

// answer records the choice for the current item and submits the set
// after the last one.
func (s *Screen) answer(choice int) tea.Cmd {
	q := s.items[s.index]
	s.subs = append(s.subs, evaluator.Submission{
		QuestionID: q.ID,
		Choice:     choice,
		Elapsed:    s.now().Sub(s.shownAt),
	})
	s.index++
	if s.index < len(s.items) {
		s.show()
		return nil
	}

	s.mode = modeLoading
	subs := s.subs
	if s.out.Round != nil {
		n := s.out.Round.Number
		return s.call(func(ctx context.Context) (session.Outcome, error) {
			return s.engine.SubmitRound(ctx, s.id, n, subs)
		})
	}
	return s.call(func(ctx context.Context) (session.Outcome, error) {
		return s.engine.SubmitBundle(ctx, s.id, subs)
	})
}

// proceed leaves the current review.
func (s *Screen) proceed() tea.Cmd {
	s.mode = modeLoading
	state := s.out.State
	if state.Phase == flow.PhaseRoundReview && s.out.RoundResult != nil {
		n := s.out.RoundResult.Number
		return s.call(func(ctx context.Context) (session.Outcome, error) {
			return s.engine.ContinueRound(ctx, s.id, n)
		})
	}
	return s.call(func(ctx context.Context) (session.Outcome, error) {
		return s.engine.Continue(ctx, s.id, state.Tier)
	})
}

func (s *Screen) fetchReview() tea.Cmd {
	ctx, id, out := s.ctx, s.id, s.out
	cmd := func() tea.Msg {
		var (
			rev review.Review
			err error
		)
		if out.State.Phase == flow.PhaseRoundReview && out.RoundResult != nil {
			rev, err = s.engine.RoundReview(ctx, id, out.RoundResult.Number)
		} else {
			rev, err = s.engine.Review(ctx, id, out.State.Tier)
		}
		return reviewMsg{Review: rev, Err: err}
	}
	s.retry = cmd
	return cmd
}

func (s *Screen) fetchReport() tea.Cmd {
	ctx, id := s.ctx, s.id
	cmd := func() tea.Msg {
		rep, err := s.engine.Report(ctx, id)
		return reportMsg{Report: rep, Err: err}
	}
	s.retry = cmd
	return cmd
}

// call wraps an engine call as a command and remembers it for retries.
// A retried call that already landed is replayed by the engine.
func (s *Screen) call(fn func(ctx context.Context) (session.Outcome, error)) tea.Cmd {
	ctx := s.ctx
	cmd := func() tea.Msg {
		out, err := fn(ctx)
		return outcomeMsg{Outcome: out, Err: err}
	}
	s.retry = cmd
	return cmd
}

func (s *Screen) fail(err error) tea.Cmd {
	s.mode = modeError
	s.err = err
	return nil
}
