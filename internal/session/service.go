package session

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
	"github.com/abhisek/tierloop/internal/remediation"
	"github.com/abhisek/tierloop/internal/review"
)

// Operation names, used in errors, logs and recorded events.
const (
	OpCreate        = "create"
	OpStartTier     = "start_tier"
	OpSubmitBundle  = "submit_bundle"
	OpContinue      = "continue"
	OpSubmitRound   = "submit_round"
	OpContinueRound = "continue_round"
	OpReview        = "review"
	OpRoundReview   = "round_review"
	OpReport        = "report"
)

// BundleBuilder assembles the primary bundle for a tier.
type BundleBuilder interface {
	Build(ctx context.Context, tier curriculum.Tier, exclude []string) ([]problemgen.Question, error)
}

// RoundPlanner builds remediation rounds for missed questions.
type RoundPlanner interface {
	StartRounds(ctx context.Context, wrong []evaluator.WrongAnswer, tier curriculum.Tier, exclude []string) (*remediation.Plan, error)
}

// ReviewComposer computes reviews.
type ReviewComposer interface {
	Compose(ctx context.Context, req review.Request) (review.Review, error)
}

// Service runs sessions. Every operation on one session is serialized;
// operations on different sessions run in parallel.
type Service struct {
	store    *Store
	bundles  BundleBuilder
	rounds   RoundPlanner
	reviews  ReviewComposer
	policy   evaluator.Policy
	recorder Recorder
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the session store.
func WithStore(st *Store) Option {
	return func(s *Service) { s.store = st }
}

// WithPolicy sets the pass thresholds.
func WithPolicy(p evaluator.Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithRecorder sets where committed transitions and answers are recorded.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service's logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = logger.OrNop(l) }
}

// WithClock overrides the time source used to stamp answers and events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDFunc overrides session id generation.
func WithIDFunc(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// NewService creates a Service.
func NewService(bundles BundleBuilder, rounds RoundPlanner, reviews ReviewComposer, opts ...Option) *Service {
	s := &Service{
		store:    NewStore(),
		bundles:  bundles,
		rounds:   rounds,
		reviews:  reviews,
		policy:   evaluator.DefaultPolicy(),
		recorder: nopRecorder{},
		log:      logger.Nop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the pass thresholds in effect.
func (s *Service) Policy() evaluator.Policy {
	return s.policy
}

// Create starts a new session in INIT.
func (s *Service) Create(ctx context.Context, identity Identity) (*Session, error) {
	now := s.now()
	sess := newSession(s.newID(), identity, now)
	err := s.store.Insert(sess, func(snap *Session) {
		s.log.Info("session created", "session", snap.ID, "learner", identity.Name)
		s.record(ctx, TransitionEvent{SessionID: snap.ID, Op: OpCreate, From: snap.State, To: snap.State, At: now, Session: snap}, nil)
	})
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Snapshot returns a copy of the latest committed session state. It never
// waits for an in-flight transition.
func (s *Service) Snapshot(_ context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return sess.Clone(), nil
}

// Sessions returns every session id.
func (s *Service) Sessions() []string {
	return s.store.IDs()
}

// StartTier enters the first tier's bundle. Replaying it while the bundle
// is pending returns the same bundle.
func (s *Service) StartTier(ctx context.Context, id string, tier curriculum.Tier) (Outcome, error) {
	ctx = llm.WithSession(ctx, id)
	var out Outcome
	err := s.transition(ctx, id, OpStartTier, func(sess *Session, tx *txn) error {
		switch {
		case sess.State.Phase == flow.PhaseInit:
			if tier != curriculum.FirstTier {
				return rejectf(sess, OpStartTier, "sessions start at the %s tier", curriculum.FirstTier)
			}
			next, err := flow.Next(sess.State, flow.EventStart)
			if err != nil {
				return err
			}
			if err := s.enterBundle(ctx, sess, tx, next); err != nil {
				return err
			}
			out = current(sess)
		case sess.State.Phase == flow.PhaseBundle && sess.State.Tier == tier:
			out = current(sess)
			out.Replayed = true
		default:
			return reject(sess, OpStartTier)
		}
		return nil
	})
	return out, err
}

// SubmitBundle grades the pending bundle. Replaying the same question set
// while its review is pending returns the stored result.
func (s *Service) SubmitBundle(ctx context.Context, id string, subs []evaluator.Submission) (Outcome, error) {
	var out Outcome
	err := s.transition(ctx, id, OpSubmitBundle, func(sess *Session, tx *txn) error {
		rec := sess.Tiers[sess.Tier]
		switch sess.State.Phase {
		case flow.PhaseBundle:
			if rec == nil || len(rec.Bundle) == 0 {
				return rejectf(sess, OpSubmitBundle, "no bundle pending")
			}
		case flow.PhaseReview, flow.PhaseReviewFail:
			if rec != nil && rec.Result != nil && sameQuestions(rec.Bundle, subs) {
				out = current(sess)
				out.Replayed = true
				return nil
			}
			return reject(sess, OpSubmitBundle)
		default:
			return reject(sess, OpSubmitBundle)
		}

		res, err := evaluator.Evaluate(sess.Tier, rec.Bundle, stamp(subs, tx.now), s.policy)
		if err != nil {
			return err
		}
		rec.Result = &res
		tx.appendAnswers(sess, sess.Tier, res.Answers)
		tx.move(sess, res.NextState)
		sess.Reviews = append(sess.Reviews, review.Record{
			Tier: sess.Tier, Kind: flow.ReviewKindOf(res.NextState), Passed: res.Passed,
			Correct: res.Score, Total: res.Total, At: tx.now,
		})
		out = current(sess)
		return nil
	})
	return out, err
}

// Continue leaves a tier-level review: into remediation after a failed
// bundle, otherwise into the next tier's bundle or END. Replaying it after
// the session moved on returns the current artifact.
func (s *Service) Continue(ctx context.Context, id string, tier curriculum.Tier) (Outcome, error) {
	ctx = llm.WithSession(ctx, id)
	var out Outcome
	err := s.transition(ctx, id, OpContinue, func(sess *Session, tx *txn) error {
		st := sess.State
		if st.Terminal() {
			return reject(sess, OpContinue)
		}
		if st.Tier != tier || !flow.Accepts(st, flow.EventContinue) {
			if continuedPast(sess, tier) {
				out = current(sess)
				out.Replayed = true
				return nil
			}
			return reject(sess, OpContinue)
		}

		next, err := flow.Next(st, flow.EventContinue)
		if err != nil {
			return err
		}
		switch next.Phase {
		case flow.PhaseSuppRound:
			err = s.enterRemediation(ctx, sess, tx, next)
		case flow.PhaseBundle:
			err = s.enterBundle(ctx, sess, tx, next)
		default:
			tx.move(sess, next)
		}
		if err != nil {
			return err
		}
		out = current(sess)
		return nil
	})
	return out, err
}

// SubmitRound grades the active remediation round. Submitting the same
// round again before continuing overwrites its answers; submitting a round
// already continued past returns its stored outcome.
func (s *Service) SubmitRound(ctx context.Context, id string, number int, subs []evaluator.Submission) (Outcome, error) {
	var out Outcome
	err := s.transition(ctx, id, OpSubmitRound, func(sess *Session, tx *txn) error {
		plan := sess.Plan()
		if sess.State.Terminal() || plan == nil {
			return reject(sess, OpSubmitRound)
		}
		if number >= 1 && number <= plan.Cursor {
			r, _ := plan.Round(number)
			out = current(sess)
			out.RoundResult = roundResult(plan, r)
			out.Replayed = true
			return nil
		}
		if sess.State.Phase != flow.PhaseSuppRound && sess.State.Phase != flow.PhaseRoundReview {
			return reject(sess, OpSubmitRound)
		}
		cur, ok := plan.Current()
		if !ok || number != cur.Number {
			return rejectf(sess, OpSubmitRound, "round %d is not active", number)
		}

		answers, err := evaluator.Grade(cur.Items, stamp(subs, tx.now), number)
		if err != nil {
			return err
		}
		if sess.State.Phase == flow.PhaseRoundReview && sameAnswers(cur.Answers, answers) {
			out = current(sess)
			out.Replayed = true
			return nil
		}
		if err := plan.Submit(number, answers); err != nil {
			return rejectf(sess, OpSubmitRound, "%v", err)
		}
		tx.changed = true

		correct := evaluator.CountCorrect(answers)
		rec := review.Record{
			Tier: sess.Tier, Kind: flow.ReviewRound, Round: number,
			Passed: s.policy.RoundsPassed(correct, len(answers)), Correct: correct, Total: len(answers), At: tx.now,
		}
		if sess.State.Phase == flow.PhaseSuppRound {
			next, err := flow.Next(sess.State, flow.EventRoundSubmitted)
			if err != nil {
				return err
			}
			tx.move(sess, next)
			sess.Reviews = append(sess.Reviews, rec)
		} else {
			replaceRoundRecord(sess, rec)
		}
		out = current(sess)
		return nil
	})
	return out, err
}

// ContinueRound leaves a round review. The round's answers join the log;
// the session moves to the next round or, after the last one, to the
// remediation review chosen by the aggregate threshold.
func (s *Service) ContinueRound(ctx context.Context, id string, number int) (Outcome, error) {
	var out Outcome
	err := s.transition(ctx, id, OpContinueRound, func(sess *Session, tx *txn) error {
		plan := sess.Plan()
		if sess.State.Terminal() || plan == nil {
			return reject(sess, OpContinueRound)
		}
		if number >= 1 && number <= plan.Cursor {
			out = current(sess)
			out.Replayed = true
			return nil
		}
		if sess.State.Phase != flow.PhaseRoundReview {
			return reject(sess, OpContinueRound)
		}
		cur, ok := plan.Current()
		if !ok || number != cur.Number {
			return rejectf(sess, OpContinueRound, "round %d is not active", number)
		}
		hasMore, _, err := plan.Advance(number)
		if err != nil {
			return rejectf(sess, OpContinueRound, "%v", err)
		}
		tx.appendAnswers(sess, sess.Tier, cur.Answers)

		if hasMore {
			next, err := flow.Next(sess.State, flow.EventNextRound)
			if err != nil {
				return err
			}
			tx.move(sess, next)
			out = current(sess)
			return nil
		}

		passed := plan.Passed(s.policy)
		sess.record(sess.Tier).RemediationPassed = &passed
		next, err := flow.Next(sess.State, flow.RoundsOutcome(passed))
		if err != nil {
			return err
		}
		tx.move(sess, next)
		correct, total := plan.Tally()
		sess.Reviews = append(sess.Reviews, review.Record{
			Tier: sess.Tier, Kind: flow.ReviewKindOf(next), Passed: passed,
			Correct: correct, Total: total, At: tx.now,
		})
		out = current(sess)
		return nil
	})
	return out, err
}

// Review computes the latest tier-level review for tier. Which answers it
// covers follows from the recorded review kind alone.
func (s *Service) Review(ctx context.Context, id string, tier curriculum.Tier) (review.Review, error) {
	ctx = llm.WithSession(ctx, id)
	sess, err := s.store.Get(id)
	if err != nil {
		return review.Review{}, err
	}
	rec, ok := sess.LastReview(tier)
	if !ok {
		return review.Review{}, rejectf(sess, OpReview, "no review for the %s tier yet", tier)
	}

	req := review.Request{
		SessionID: sess.ID,
		Tier:      tier,
		Kind:      rec.Kind,
		Passed:    rec.Passed,
		Questions: sess.Questions(),
	}
	if rec.Kind.Supplementary() {
		req.Answers = sess.RemediationAnswers(tier)
	} else {
		req.Answers = sess.BundleAnswers(tier)
	}
	return s.reviews.Compose(ctx, req)
}

// RoundReview computes the review of one submitted round of the current
// tier.
func (s *Service) RoundReview(ctx context.Context, id string, number int) (review.Review, error) {
	ctx = llm.WithSession(ctx, id)
	sess, err := s.store.Get(id)
	if err != nil {
		return review.Review{}, err
	}
	r, ok := sess.Plan().Round(number)
	if !ok || !r.Complete {
		return review.Review{}, rejectf(sess, OpRoundReview, "round %d has no answers", number)
	}
	return s.reviews.Compose(ctx, review.Request{
		SessionID: sess.ID,
		Tier:      sess.Tier,
		Kind:      flow.ReviewRound,
		Round:     number,
		Passed:    s.policy.RoundsPassed(r.Correct(), len(r.Answers)),
		Answers:   r.Answers,
		Questions: sess.Questions(),
	})
}

func (s *Service) enterBundle(ctx context.Context, sess *Session, tx *txn, next flow.State) error {
	qs, err := s.bundles.Build(ctx, next.Tier, sess.Presented)
	if err != nil {
		return fmt.Errorf("build %s bundle: %w", next.Tier, err)
	}
	sess.record(next.Tier).Bundle = qs
	sess.present(qs)
	tx.move(sess, next)
	return nil
}

func (s *Service) enterRemediation(ctx context.Context, sess *Session, tx *txn, next flow.State) error {
	rec := sess.Tiers[sess.Tier]
	if rec == nil || rec.Result == nil || len(rec.Result.WrongAnswers) == 0 {
		return fmt.Errorf("start remediation for %s: no missed questions", sess.Tier)
	}
	plan, err := s.rounds.StartRounds(ctx, rec.Result.WrongAnswers, sess.Tier, sess.Presented)
	if err != nil {
		return fmt.Errorf("start remediation for %s: %w", sess.Tier, err)
	}
	rec.Plan = plan
	for _, r := range plan.Rounds {
		sess.present(r.Items)
	}
	tx.move(sess, next)
	return nil
}

// txn collects what one operation changed.
type txn struct {
	now      time.Time
	changed  bool
	appended []evaluator.Answer
}

func (tx *txn) move(sess *Session, to flow.State) {
	sess.State = to
	sess.Tier = to.Tier
	tx.changed = true
}

func (tx *txn) appendAnswers(sess *Session, tier curriculum.Tier, answers []evaluator.Answer) {
	sess.Answers[tier] = append(sess.Answers[tier], answers...)
	tx.appended = append(tx.appended, answers...)
	tx.changed = true
}

// transition runs fn under the session's write lock. The commit is logged
// and recorded before the lock is released, so a session's events reach
// the recorder in commit order.
func (s *Service) transition(ctx context.Context, id, op string, fn func(*Session, *txn) error) error {
	tx := &txn{now: s.now()}
	var from flow.State
	_, err := s.store.Update(id, func(sess *Session) (bool, error) {
		from = sess.State
		if err := fn(sess, tx); err != nil {
			return false, err
		}
		if tx.changed {
			sess.UpdatedAt = tx.now
		}
		return tx.changed, nil
	}, func(snap *Session) {
		s.log.Info("session transition", "session", id, "op", op, "from", from.String(), "to", snap.State.String(), "version", snap.Version)
		s.record(ctx, TransitionEvent{SessionID: id, Op: op, From: from, To: snap.State, Version: snap.Version, At: tx.now, Session: snap}, tx.appended)
	})
	if err != nil {
		s.log.Debug("operation rejected", "session", id, "op", op, "error", err)
		return err
	}
	return nil
}

func (s *Service) record(ctx context.Context, ev TransitionEvent, answers []evaluator.Answer) {
	ctx = context.WithoutCancel(ctx)
	if err := s.recorder.RecordTransition(ctx, ev); err != nil {
		s.log.Warn("failed to record transition", "session", ev.SessionID, "op", ev.Op, "error", err)
	}
	if len(answers) == 0 {
		return
	}
	if err := s.recorder.RecordAnswers(ctx, ev.SessionID, answers); err != nil {
		s.log.Warn("failed to record answers", "session", ev.SessionID, "count", len(answers), "error", err)
	}
}

// continuedPast reports whether the learner already left tier's review.
func continuedPast(sess *Session, tier curriculum.Tier) bool {
	if _, ok := sess.LastReview(tier); !ok {
		return false
	}
	st := sess.State
	if st.Tier > tier {
		return true
	}
	return st.Tier == tier && (st.Phase == flow.PhaseSuppRound || st.Phase == flow.PhaseRoundReview)
}

func replaceRoundRecord(sess *Session, rec review.Record) {
	for i, r := range slices.Backward(sess.Reviews) {
		if r.Tier == rec.Tier && r.Kind == flow.ReviewRound && r.Round == rec.Round {
			sess.Reviews[i] = rec
			return
		}
	}
	sess.Reviews = append(sess.Reviews, rec)
}

// stamp fills in submission times the client left blank.
func stamp(subs []evaluator.Submission, now time.Time) []evaluator.Submission {
	out := slices.Clone(subs)
	for i := range out {
		if out[i].SubmittedAt.IsZero() {
			out[i].SubmittedAt = now
		}
	}
	return out
}

func sameQuestions(qs []problemgen.Question, subs []evaluator.Submission) bool {
	if len(qs) != len(subs) {
		return false
	}
	want := make(map[string]bool, len(qs))
	for _, q := range qs {
		want[q.ID] = true
	}
	for _, sub := range subs {
		if !want[sub.QuestionID] {
			return false
		}
		delete(want, sub.QuestionID)
	}
	return true
}

func sameAnswers(a, b []evaluator.Answer) bool {
	return slices.EqualFunc(a, b, func(x, y evaluator.Answer) bool {
		return x.QuestionID == y.QuestionID && x.Choice == y.Choice && x.Elapsed == y.Elapsed
	})
}
