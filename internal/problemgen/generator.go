package problemgen

import (
	"context"
	"errors"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// ErrContentUnavailable is returned when no source, placeholders included,
// can supply a question for a required slot.
var ErrContentUnavailable = errors.New("content unavailable")

// Generator produces replacement questions and theory text. Implementations
// may fail, return fewer items than asked, or return malformed items; the
// Adapter handles all three.
type Generator interface {
	// Isomorphs returns up to n questions that test the same idea as src.
	Isomorphs(ctx context.Context, src Question, n int) ([]Question, error)

	// TopicQuestions returns up to n fresh questions for a lesson and tier.
	TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]Question, error)

	// Theory returns a short explanation of the lesson at the given tier.
	Theory(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error)
}
