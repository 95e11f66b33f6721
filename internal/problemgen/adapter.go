package problemgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/logger"
)

// ErrNoGenerator is returned by an Adapter that has no generator behind it.
var ErrNoGenerator = errors.New("content generator not configured")

// Adapter wraps a Generator with a per-call timeout and the validator
// chain. It returns only valid items, each with a fresh id. Malformed
// items are logged and dropped, never surfaced to callers.
type Adapter struct {
	gen        Generator
	validators []Validator
	timeout    time.Duration
	log        *logger.Logger
	newID      func() string
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithTimeout bounds each generator call.
func WithTimeout(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithValidators replaces the default validator chain.
func WithValidators(vs ...Validator) AdapterOption {
	return func(a *Adapter) { a.validators = vs }
}

// WithLogger sets the adapter's logger.
func WithLogger(l *logger.Logger) AdapterOption {
	return func(a *Adapter) { a.log = logger.OrNop(l) }
}

// WithIDFunc overrides id assignment for generated questions.
func WithIDFunc(f func() string) AdapterOption {
	return func(a *Adapter) { a.newID = f }
}

// NewAdapter wraps gen. A nil gen yields an adapter whose calls all fail
// with ErrNoGenerator.
func NewAdapter(gen Generator, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		gen:        gen,
		validators: DefaultValidators(),
		timeout:    DefaultTimeout,
		log:        logger.Nop(),
		newID:      func() string { return "gen-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Enabled reports whether a generator is configured.
func (a *Adapter) Enabled() bool {
	return a != nil && a.gen != nil
}

// Isomorphs returns up to n valid replacements for src.
func (a *Adapter) Isomorphs(ctx context.Context, src Question, n int) ([]Question, error) {
	if !a.Enabled() {
		return nil, ErrNoGenerator
	}
	qs, err := Bounded(ctx, a.timeout, func(ctx context.Context) ([]Question, error) {
		return a.gen.Isomorphs(ctx, src, n)
	})
	if err != nil {
		return nil, fmt.Errorf("isomorphs for %s: %w", src.ID, err)
	}
	return a.accept(qs, src.LessonID, src.Tier, n, src.Prompt), nil
}

// TopicQuestions returns up to n valid questions for the lesson and tier.
func (a *Adapter) TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]Question, error) {
	if !a.Enabled() {
		return nil, ErrNoGenerator
	}
	qs, err := Bounded(ctx, a.timeout, func(ctx context.Context) ([]Question, error) {
		return a.gen.TopicQuestions(ctx, lesson, tier, n)
	})
	if err != nil {
		return nil, fmt.Errorf("topic questions for %s/%s: %w", lesson.ID, tier, err)
	}
	return a.accept(qs, lesson.ID, tier, n, ""), nil
}

// Theory returns theory text for the lesson and tier.
func (a *Adapter) Theory(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error) {
	if !a.Enabled() {
		return "", ErrNoGenerator
	}
	theory, err := Bounded(ctx, a.timeout, func(ctx context.Context) (string, error) {
		return a.gen.Theory(ctx, lesson, tier)
	})
	if err != nil {
		return "", fmt.Errorf("theory for %s/%s: %w", lesson.ID, tier, err)
	}
	theory = strings.TrimSpace(theory)
	if theory == "" {
		return "", fmt.Errorf("theory for %s/%s: empty", lesson.ID, tier)
	}
	return theory, nil
}

// accept stamps, validates and deduplicates generated items. Items whose
// prompt matches exclude are dropped.
func (a *Adapter) accept(qs []Question, lessonID string, tier curriculum.Tier, n int, exclude string) []Question {
	seen := make(map[string]struct{}, len(qs))
	if exclude != "" {
		seen[normalizePrompt(exclude)] = struct{}{}
	}

	out := make([]Question, 0, min(len(qs), max(n, 0)))
	for _, q := range qs {
		if len(out) >= n {
			break
		}
		q = q.Clone()
		q.LessonID = lessonID
		q.Tier = tier
		q.Origin = OriginGenerated
		q.Placeholder = false

		if verr := Validate(&q, a.validators); verr != nil {
			a.log.Warn("discarding malformed generated question",
				"lesson", lessonID, "tier", tier.String(), "validator", verr.Validator, "reason", verr.Message)
			continue
		}
		key := normalizePrompt(q.Prompt)
		if _, dup := seen[key]; dup {
			a.log.Debug("discarding repeated generated question", "lesson", lessonID, "tier", tier.String())
			continue
		}
		seen[key] = struct{}{}

		q.ID = a.newID()
		out = append(out, q)
	}
	return out
}

func normalizePrompt(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type result[T any] struct {
	v   T
	err error
}

// Bounded runs fn under a timeout and returns as soon as the deadline
// passes, even if fn ignores its context.
func Bounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
