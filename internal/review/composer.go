package review

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/tierloop/internal/cache"
	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/diagnosis"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
)

// DefaultTimeout bounds each narrator and theory call.
const DefaultTimeout = 20 * time.Second

// TheorySource supplies background text for a lesson.
type TheorySource interface {
	Theory(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error)
}

// Request selects the slice of the answer log a review covers.
type Request struct {
	SessionID string
	Tier      curriculum.Tier
	Kind      flow.ReviewKind
	Round     int
	Passed    bool
	Final     bool
	Answers   []evaluator.Answer

	// Questions maps presented question ids to their content, used to
	// explain missed items.
	Questions map[string]problemgen.Question
}

// Composer builds reviews. Safe for concurrent use.
type Composer struct {
	catalog  *curriculum.Catalog
	narrator Narrator
	theory   TheorySource
	timeout  time.Duration
	store    cache.Cache
	ttl      time.Duration
	memo     *cache.Memo[Review]
	log      *logger.Logger

	classifiers []diagnosis.Classifier
}

// Option configures a Composer.
type Option func(*Composer)

// WithNarrator sets the narrator. StaticNarrator is used when unset or on
// failure.
func WithNarrator(n Narrator) Option {
	return func(c *Composer) { c.narrator = n }
}

// WithTheory sets the theory source for failed-remediation reviews.
func WithTheory(t TheorySource) Option {
	return func(c *Composer) { c.theory = t }
}

// WithTimeout bounds each collaborator call.
func WithTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCache memoizes reviews built from a successful narrator call.
func WithCache(store cache.Cache, ttl time.Duration) Option {
	return func(c *Composer) { c.store, c.ttl = store, ttl }
}

// WithLogger sets the composer's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Composer) { c.log = logger.OrNop(l) }
}

// NewComposer creates a Composer over the lesson catalog.
func NewComposer(catalog *curriculum.Catalog, opts ...Option) *Composer {
	c := &Composer{
		catalog:  catalog,
		narrator: StaticNarrator{},
		timeout:  DefaultTimeout,
		log:      logger.Nop(),

		classifiers: diagnosis.DefaultClassifiers(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = curriculum.NewCatalog(nil)
	}
	c.memo = cache.NewMemo[Review](c.store, c.ttl, c.log)
	return c
}

// Compose builds the review for req. Collaborator failures fall back to
// static content, so the only errors are cache-level ones, which are
// already absorbed by the memo.
func (c *Composer) Compose(ctx context.Context, req Request) (Review, error) {
	if req.SessionID == "" {
		return c.compose(ctx, req), nil
	}
	return c.memo.DoIf(ctx, cacheKey(req), func(ctx context.Context) (Review, error) {
		return c.compose(ctx, req), nil
	}, func(r Review) bool { return r.NarrativeSource == SourceNarrator })
}

func (c *Composer) compose(ctx context.Context, req Request) Review {
	lessons, overall := Summarize(req.Answers, c.catalog)
	r := Review{
		Tier:    req.Tier,
		Kind:    req.Kind,
		Round:   req.Round,
		Passed:  req.Passed,
		Lessons: lessons,
		Overall: overall,
		Missed:  c.missed(req),
	}

	var g errgroup.Group
	if req.Kind == flow.ReviewSuppFail {
		g.Go(func() error {
			r.Theory = c.theoryNotes(ctx, req)
			return nil
		})
	}

	summary := Summary{
		Tier: req.Tier, Kind: req.Kind, Round: req.Round, Passed: req.Passed,
		Lessons: lessons, Overall: overall, Missed: r.Missed, Final: req.Final,
	}
	r.Recommendations, r.NarrativeSource = c.recommend(ctx, summary)
	_ = g.Wait()
	return r
}

func (c *Composer) recommend(ctx context.Context, s Summary) ([]string, string) {
	if _, static := c.narrator.(StaticNarrator); static {
		return staticRecommendations(s), SourceStatic
	}
	recs, err := problemgen.Bounded(ctx, c.timeout, func(ctx context.Context) ([]string, error) {
		return c.narrator.Recommend(ctx, s)
	})
	if err == nil && len(recs) > 0 {
		return recs, SourceNarrator
	}
	if err == nil {
		err = errors.New("no recommendations")
	}
	c.log.Warn("narrative unavailable, using static recommendations",
		"tier", s.Tier.String(), "kind", s.Kind.String(), "error", err)
	return staticRecommendations(s), SourceStatic
}

func (c *Composer) missed(req Request) []MissedItem {
	causes := diagnosis.Diagnose(c.classifiers, req.Answers)
	var out []MissedItem
	for _, a := range req.Answers {
		if a.Correct {
			continue
		}
		item := MissedItem{QuestionID: a.QuestionID, LessonID: a.LessonID, Round: a.Round, Cause: causes[a.QuestionID].Cause}
		if q, ok := req.Questions[a.QuestionID]; ok {
			item.Prompt = q.Prompt
			item.Correct = q.CorrectChoice()
			item.Explanation = q.Explanation
			if a.Choice >= 0 && a.Choice < len(q.Choices) {
				item.Chosen = q.Choices[a.Choice]
			}
		}
		out = append(out, item)
	}
	return out
}

// theoryNotes fetches theory for every lesson with a wrong answer, falling
// back to the missed questions' own theory or explanation.
func (c *Composer) theoryNotes(ctx context.Context, req Request) []TheoryNote {
	lessons := evaluator.WeakLessons(req.Answers)
	notes := make([]TheoryNote, len(lessons))

	var g errgroup.Group
	for i, id := range lessons {
		g.Go(func() error {
			notes[i] = TheoryNote{LessonID: id, Text: c.lessonTheory(ctx, req, id)}
			return nil
		})
	}
	_ = g.Wait()
	return notes
}

func (c *Composer) lessonTheory(ctx context.Context, req Request, lessonID string) string {
	if c.theory != nil {
		lesson, ok := c.catalog.Get(lessonID)
		if !ok {
			lesson = curriculum.Lesson{ID: lessonID, Name: lessonID}
		}
		text, err := problemgen.Bounded(ctx, c.timeout, func(ctx context.Context) (string, error) {
			return c.theory.Theory(ctx, lesson, req.Tier)
		})
		if err == nil && strings.TrimSpace(text) != "" {
			return text
		}
		c.log.Warn("theory unavailable", "lesson", lessonID, "tier", req.Tier.String(), "error", err)
	}

	var fallback string
	for _, a := range req.Answers {
		q, ok := req.Questions[a.QuestionID]
		if a.Correct || !ok || q.LessonID != lessonID {
			continue
		}
		if q.Theory != "" {
			return q.Theory
		}
		if fallback == "" {
			fallback = q.Explanation
		}
	}
	if fallback == "" {
		fallback = fmt.Sprintf("Review the key ideas of %s before the next tier.", c.catalog.Name(lessonID))
	}
	return fallback
}

func cacheKey(req Request) string {
	var b strings.Builder
	for _, a := range req.Answers {
		fmt.Fprintf(&b, "%s=%d;", a.QuestionID, a.Choice)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("review:%s:%s:%s:%d:%t:%s", req.SessionID, req.Tier, req.Kind, req.Round, req.Final, hex.EncodeToString(sum[:8]))
}
