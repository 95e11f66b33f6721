package problemgen

import (
	"fmt"
	"hash/fnv"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// Placeholders synthesizes n marked stand-in questions for a lesson and
// tier. Output is deterministic for a given seed, and ids are unique per
// (lesson, tier, seed, index).
func Placeholders(lessonID string, tier curriculum.Tier, n int, seed string) []Question {
	if n <= 0 {
		return nil
	}
	qs := make([]Question, n)
	for i := range qs {
		id := fmt.Sprintf("ph-%s-%s-%s-%d", lessonID, tier, seed, i+1)
		qs[i] = Question{
			ID:       id,
			LessonID: lessonID,
			Tier:     tier,
			Prompt: fmt.Sprintf("Practice item %d for %q (%s). Content for this lesson is not available right now; pick the option marked correct.",
				i+1, lessonID, tier.DisplayName()),
			Choices:      []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectIndex: placeholderIndex(id),
			Explanation:  "This is a placeholder item standing in for unavailable content.",
			Placeholder:  true,
			Origin:       OriginPlaceholder,
		}
		qs[i].Choices[qs[i].CorrectIndex] += " (correct)"
	}
	return qs
}

func placeholderIndex(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % ChoiceCount)
}

// Duplicate returns a copy of q re-identified as the n-th duplicate, used
// when a round has to repeat items to reach its size.
func Duplicate(q Question, n int) Question {
	d := q.Clone()
	d.ID = fmt.Sprintf("%s~dup%d", q.ID, n)
	d.Origin = OriginDuplicate
	return d
}
