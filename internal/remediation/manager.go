// Package remediation builds and tracks remediation rounds: one fixed-size
// round per missed bundle question.
package remediation

import (
	"context"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/ladder"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
)

// DefaultRoundSize is the number of items in every round.
const DefaultRoundSize = 5

// Source is the item bank as seen by the manager.
type Source interface {
	Available(tier curriculum.Tier, lessonIDs []string, excluded func(id string) bool) []problemgen.Question
}

// Generator supplies replacement and topic questions.
type Generator interface {
	Isomorphs(ctx context.Context, src problemgen.Question, n int) ([]problemgen.Question, error)
	TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]problemgen.Question, error)
}

// Manager builds remediation plans. Safe for concurrent use.
type Manager struct {
	source       Source
	catalog      *curriculum.Catalog
	gen          Generator
	roundSize    int
	placeholders bool
	log          *logger.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithGenerator sets the generator. A nil generator skips both generated
// steps.
func WithGenerator(g Generator) Option {
	return func(m *Manager) { m.gen = g }
}

// WithRoundSize sets the number of items per round.
func WithRoundSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.roundSize = n
		}
	}
}

// WithPlaceholders toggles placeholder synthesis when a round has nothing
// to duplicate. Enabled by default.
func WithPlaceholders(enabled bool) Option {
	return func(m *Manager) { m.placeholders = enabled }
}

// WithLogger sets the manager's logger.
func WithLogger(l *logger.Logger) Option {
	return func(m *Manager) { m.log = logger.OrNop(l) }
}

// NewManager creates a Manager.
func NewManager(source Source, catalog *curriculum.Catalog, opts ...Option) *Manager {
	m := &Manager{
		source:       source,
		catalog:      catalog,
		roundSize:    DefaultRoundSize,
		placeholders: true,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RoundSize returns the configured round size.
func (m *Manager) RoundSize() int {
	return m.roundSize
}

// StartRounds builds one round per wrong answer, in submission order.
// exclude holds every question id already used in the session. Rounds are
// built concurrently and never share a bank item.
func (m *Manager) StartRounds(ctx context.Context, wrong []evaluator.WrongAnswer, tier curriculum.Tier, exclude []string) (*Plan, error) {
	plan := &Plan{Tier: tier, Rounds: make([]Round, len(wrong))}
	claimed := newClaims(exclude)

	g, gctx := errgroup.WithContext(ctx)
	for i, w := range wrong {
		g.Go(func() error {
			r, err := m.buildRound(gctx, i+1, w.Question, tier, claimed)
			if err != nil {
				return err
			}
			plan.Rounds[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (m *Manager) buildRound(ctx context.Context, number int, missed problemgen.Question, tier curriculum.Tier, claimed *claims) (Round, error) {
	log := m.log.With("round", number, "missed", missed.ID, "lesson", missed.LessonID, "tier", tier.String())
	res := ladder.Run(ctx, m.roundSize, m.steps(number, missed, tier, claimed), log)
	if len(res.Items) == 0 {
		return Round{}, fmt.Errorf("round %d for %s: %w", number, missed.ID, problemgen.ErrContentUnavailable)
	}
	if !res.Enough(m.roundSize) {
		log.Warn("round below size", "size", len(res.Items), "want", m.roundSize)
	}

	r := Round{Number: number, Missed: missed.Clone(), Items: res.Items}
	r.Degraded = slices.ContainsFunc(r.Items, func(q problemgen.Question) bool {
		return q.Placeholder || q.Origin == problemgen.OriginDuplicate
	})
	return r, nil
}

// steps is the round ladder: isomorphs, bank top-up, topic questions, then
// duplication of what was found (or placeholders when nothing was).
func (m *Manager) steps(number int, missed problemgen.Question, tier curriculum.Tier, claimed *claims) []ladder.Step[problemgen.Question] {
	lesson, ok := m.catalog.Get(missed.LessonID)
	if !ok {
		lesson = curriculum.Lesson{ID: missed.LessonID, Name: missed.LessonID}
	}
	var steps []ladder.Step[problemgen.Question]

	if m.gen != nil {
		steps = append(steps, ladder.Step[problemgen.Question]{Name: "isomorphs", Fill: func(ctx context.Context, _ []problemgen.Question, need int) ([]problemgen.Question, error) {
			qs, err := m.gen.Isomorphs(ctx, missed, need)
			return claimed.take(qs, need), err
		}})
	}

	steps = append(steps, ladder.Step[problemgen.Question]{Name: "bank", Fill: func(_ context.Context, _ []problemgen.Question, need int) ([]problemgen.Question, error) {
		pool := m.source.Available(tier, []string{lesson.ID}, claimed.has)
		return claimed.take(pool, need), nil
	}})

	if m.gen != nil {
		steps = append(steps, ladder.Step[problemgen.Question]{Name: "topic", Fill: func(ctx context.Context, _ []problemgen.Question, need int) ([]problemgen.Question, error) {
			qs, err := m.gen.TopicQuestions(ctx, lesson, tier, need)
			return claimed.take(qs, need), err
		}})
	}

	steps = append(steps, ladder.Step[problemgen.Question]{Name: "duplicate", Fill: func(_ context.Context, have []problemgen.Question, need int) ([]problemgen.Question, error) {
		if len(have) == 0 {
			if !m.placeholders {
				return nil, nil
			}
			return problemgen.Placeholders(lesson.ID, tier, need, roundSeed(number, missed.ID)), nil
		}
		out := make([]problemgen.Question, need)
		for k := range need {
			out[k] = problemgen.Duplicate(have[k%len(have)], k/len(have)+1)
		}
		return out, nil
	}})
	return steps
}

func roundSeed(number int, missedID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(missedID))
	return fmt.Sprintf("r%d-%08x", number, h.Sum32())
}

// claims is the exclusion set shared by concurrently built rounds. An id is
// handed to at most one round.
type claims struct {
	mu  sync.Mutex
	ids map[string]bool
}

func newClaims(initial []string) *claims {
	c := &claims{ids: make(map[string]bool, len(initial))}
	for _, id := range initial {
		c.ids[id] = true
	}
	return c
}

func (c *claims) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ids[id]
}

// take claims up to n unclaimed, valid questions from qs in order.
func (c *claims) take(qs []problemgen.Question, n int) []problemgen.Question {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []problemgen.Question
	for _, q := range qs {
		if len(out) >= n {
			break
		}
		if c.ids[q.ID] || !q.Valid() {
			continue
		}
		c.ids[q.ID] = true
		out = append(out, q)
	}
	return out
}
