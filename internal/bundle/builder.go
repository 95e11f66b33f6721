// Package bundle assembles the primary question set for a tier: one
// question per lesson, in catalog order.
package bundle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/tierloop/internal/cache"
	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/ladder"
	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/logger"
	"github.com/abhisek/tierloop/internal/problemgen"
)

// Source is the item bank as seen by the builder.
type Source interface {
	Available(tier curriculum.Tier, lessonIDs []string, excluded func(id string) bool) []problemgen.Question
}

// TopicGenerator produces fresh questions for a lesson.
type TopicGenerator interface {
	TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]problemgen.Question, error)
}

// Builder builds bundles. Safe for concurrent use.
type Builder struct {
	source       Source
	lessons      []curriculum.Lesson
	gen          TopicGenerator
	placeholders bool
	intN         func(n int) int
	store        cache.Cache
	ttl          time.Duration
	memo         *cache.Memo[[]problemgen.Question]
	log          *logger.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithGenerator sets the fallback generator. A nil generator skips the
// generated step.
func WithGenerator(g TopicGenerator) Option {
	return func(b *Builder) { b.gen = g }
}

// WithPlaceholders toggles the placeholder step. Enabled by default.
func WithPlaceholders(enabled bool) Option {
	return func(b *Builder) { b.placeholders = enabled }
}

// WithCache memoizes bundles by fingerprint in c.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(b *Builder) { b.store, b.ttl = c, ttl }
}

// WithRand replaces the uniform draw; f must be safe for concurrent use and
// return a value in [0, n).
func WithRand(f func(n int) int) Option {
	return func(b *Builder) { b.intN = f }
}

// WithLogger sets the builder's logger.
func WithLogger(l *logger.Logger) Option {
	return func(b *Builder) { b.log = logger.OrNop(l) }
}

// New creates a Builder drawing from source for the given lessons.
func New(source Source, lessons []curriculum.Lesson, opts ...Option) *Builder {
	b := &Builder{
		source:       source,
		lessons:      slices.Clone(lessons),
		placeholders: true,
		intN:         rand.IntN,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.memo = cache.NewMemo[[]problemgen.Question](b.store, b.ttl, b.log)
	return b
}

// Size is the number of questions in every bundle.
func (b *Builder) Size() int {
	return len(b.lessons)
}

// Build returns one question per lesson for tier, never using an id in
// exclude. Identical (tier, exclude) inputs are served from the cache
// unless the bundle had to fall back to placeholders. A cached bundle is
// shared across sessions, so its generation calls carry no session tag.
func (b *Builder) Build(ctx context.Context, tier curriculum.Tier, exclude []string) ([]problemgen.Question, error) {
	fp := Fingerprint(tier, exclude)
	qs, err := b.memo.DoIf(ctx, "bundle:"+fp, func(ctx context.Context) ([]problemgen.Question, error) {
		return b.build(llm.WithSession(ctx, ""), tier, exclude, fp)
	}, complete)
	if err != nil {
		return nil, err
	}
	return problemgen.CloneAll(qs), nil
}

func complete(qs []problemgen.Question) bool {
	return !slices.ContainsFunc(qs, func(q problemgen.Question) bool { return q.Placeholder })
}

func (b *Builder) build(ctx context.Context, tier curriculum.Tier, exclude []string, fp string) ([]problemgen.Question, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	slots := make([]problemgen.Question, len(b.lessons))
	g, gctx := errgroup.WithContext(ctx)
	for i, lesson := range b.lessons {
		g.Go(func() error {
			res := ladder.Run(gctx, 1, b.steps(lesson, tier, excluded, fp), b.log.With("lesson", lesson.ID, "tier", tier.String()))
			if !res.Enough(1) {
				return fmt.Errorf("lesson %s at %s: %w", lesson.ID, tier, problemgen.ErrContentUnavailable)
			}
			slots[i] = res.Items[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return slots, nil
}

// steps is the per-lesson ladder: bank draw, one generated question, then a
// placeholder.
func (b *Builder) steps(lesson curriculum.Lesson, tier curriculum.Tier, excluded map[string]bool, fp string) []ladder.Step[problemgen.Question] {
	steps := []ladder.Step[problemgen.Question]{
		{Name: "bank", Fill: func(context.Context, []problemgen.Question, int) ([]problemgen.Question, error) {
			pool := b.source.Available(tier, []string{lesson.ID}, func(id string) bool { return excluded[id] })
			pool = slices.DeleteFunc(pool, func(q problemgen.Question) bool { return !q.Valid() })
			if len(pool) == 0 {
				return nil, nil
			}
			return []problemgen.Question{pool[b.intN(len(pool))]}, nil
		}},
	}
	if b.gen != nil {
		steps = append(steps, ladder.Step[problemgen.Question]{Name: "generated", Fill: func(ctx context.Context, _ []problemgen.Question, need int) ([]problemgen.Question, error) {
			qs, err := b.gen.TopicQuestions(ctx, lesson, tier, need)
			qs = slices.DeleteFunc(qs, func(q problemgen.Question) bool { return excluded[q.ID] || !q.Valid() })
			return qs, err
		}})
	}
	if b.placeholders {
		steps = append(steps, ladder.Step[problemgen.Question]{Name: "placeholder", Fill: func(_ context.Context, _ []problemgen.Question, need int) ([]problemgen.Question, error) {
			return problemgen.Placeholders(lesson.ID, tier, need, "b"+fp[len(fp)-8:]), nil
		}})
	}
	return steps
}

// Fingerprint identifies a build input: the tier plus the sorted exclusion
// set.
func Fingerprint(tier curriculum.Tier, exclude []string) string {
	ids := slices.Clone(exclude)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	sum := sha256.Sum256([]byte(tier.String() + "|" + strings.Join(ids, "\x00")))
	return tier.String() + ":" + hex.EncodeToString(sum[:12])
}
