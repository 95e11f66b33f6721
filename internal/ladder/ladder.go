// Package ladder runs an ordered list of content sources until enough items
// have been collected. Every step is judged by the same check: stop as soon
// as the wanted count is reached.
package ladder

import (
	"context"

	"github.com/abhisek/tierloop/internal/logger"
)

// Step is one rung. Fill is called with the items gathered so far and the
// number still needed; it returns new items (possibly more or fewer than
// need) or an error. An error is treated like an empty result.
type Step[T any] struct {
	Name string
	Fill func(ctx context.Context, have []T, need int) ([]T, error)
}

// Outcome records what one executed step contributed.
type Outcome struct {
	Step  string
	Added int
	Err   error
}

// Result is the collected items plus a trace of executed steps.
type Result[T any] struct {
	Items []T
	Trace []Outcome
}

// Enough reports whether want items were collected.
func (r Result[T]) Enough(want int) bool {
	return len(r.Items) >= want
}

// Run executes steps in order until want items are collected. Output is
// truncated to want. Steps after the first satisfying one are not run.
func Run[T any](ctx context.Context, want int, steps []Step[T], log *logger.Logger) Result[T] {
	log = logger.OrNop(log)
	var res Result[T]
	if want <= 0 {
		return res
	}

	for _, step := range steps {
		if res.Enough(want) {
			break
		}
		need := want - len(res.Items)
		got, err := step.Fill(ctx, res.Items, need)
		added := min(len(got), need)
		res.Items = append(res.Items, got[:added]...)
		res.Trace = append(res.Trace, Outcome{Step: step.Name, Added: added, Err: err})

		switch {
		case err != nil:
			log.Warn("ladder step failed", "step", step.Name, "need", need, "error", err)
		case added == 0:
			log.Info("ladder step yielded nothing", "step", step.Name, "need", need)
		}
	}
	return res
}
