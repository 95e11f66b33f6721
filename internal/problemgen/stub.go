package problemgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// StubGenerator is a deterministic Generator for testing. Each hook is
// optional; a nil hook produces well-formed synthetic content. Calls are
// counted per method.
type StubGenerator struct {
	IsomorphsFunc func(ctx context.Context, src Question, n int) ([]Question, error)
	TopicFunc     func(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]Question, error)
	TheoryFunc    func(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewFailingGenerator returns a StubGenerator whose every call fails with err.
func NewFailingGenerator(err error) *StubGenerator {
	return &StubGenerator{
		IsomorphsFunc: func(context.Context, Question, int) ([]Question, error) { return nil, err },
		TopicFunc: func(context.Context, curriculum.Lesson, curriculum.Tier, int) ([]Question, error) {
			return nil, err
		},
		TheoryFunc: func(context.Context, curriculum.Lesson, curriculum.Tier) (string, error) { return "", err },
	}
}

func (s *StubGenerator) Isomorphs(ctx context.Context, src Question, n int) ([]Question, error) {
	s.count("isomorphs")
	if s.IsomorphsFunc != nil {
		return s.IsomorphsFunc(ctx, src, n)
	}
	return SyntheticQuestions(src.LessonID, src.Tier, "iso-"+src.ID, n), nil
}

func (s *StubGenerator) TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]Question, error) {
	s.count("topic")
	if s.TopicFunc != nil {
		return s.TopicFunc(ctx, lesson, tier, n)
	}
	return SyntheticQuestions(lesson.ID, tier, "topic", n), nil
}

func (s *StubGenerator) Theory(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error) {
	s.count("theory")
	if s.TheoryFunc != nil {
		return s.TheoryFunc(ctx, lesson, tier)
	}
	return fmt.Sprintf("Theory for %s at %s.", lesson.ID, tier), nil
}

// Calls returns how many times the named method ("isomorphs", "topic",
// "theory") was invoked.
func (s *StubGenerator) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *StubGenerator) count(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
}

// SyntheticQuestions builds n valid questions with distinct prompts.
func SyntheticQuestions(lessonID string, tier curriculum.Tier, tag string, n int) []Question {
	qs := make([]Question, 0, max(n, 0))
	for i := range max(n, 0) {
		qs = append(qs, Question{
			ID:           fmt.Sprintf("%s-%s-%s-%d", tag, lessonID, tier, i+1),
			LessonID:     lessonID,
			Tier:         tier,
			Prompt:       fmt.Sprintf("[%s] %s question %d at %s", tag, lessonID, i+1, tier),
			Choices:      []string{"w", "x", "y", "z"},
			CorrectIndex: i % ChoiceCount,
			Explanation:  "synthetic",
			Origin:       OriginGenerated,
		})
	}
	return qs
}
