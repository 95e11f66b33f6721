// Package itembank holds the static question bank, indexed by lesson and
// tier.
package itembank

import (
	"slices"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/problemgen"
)

type cell struct {
	lesson string
	tier   curriculum.Tier
}

// Bank is an immutable, validated question bank. Safe for concurrent use.
type Bank struct {
	catalog *curriculum.Catalog
	index   map[cell][]problemgen.Question
	byID    map[string]problemgen.Question
	stats   LoadStats
}

// New builds a bank from a lesson catalog and questions. Invalid questions,
// duplicate ids, and questions for unknown lessons are dropped and counted.
func New(lessons []curriculum.Lesson, questions []problemgen.Question) *Bank {
	b := &Bank{
		catalog: curriculum.NewCatalog(lessons),
		index:   make(map[cell][]problemgen.Question),
		byID:    make(map[string]problemgen.Question),
		stats:   LoadStats{Dropped: map[string]int{}},
	}
	b.stats.Lessons = b.catalog.Len()

	for _, q := range questions {
		if reason := b.reject(q); reason != "" {
			b.stats.Dropped[reason]++
			continue
		}
		q = q.Clone()
		q.Origin = problemgen.OriginBank
		q.Placeholder = false
		k := cell{q.LessonID, q.Tier}
		b.index[k] = append(b.index[k], q)
		b.byID[q.ID] = q
		b.stats.Questions++
	}
	return b
}

func (b *Bank) reject(q problemgen.Question) string {
	if q.ID == "" {
		return "missing id"
	}
	if _, dup := b.byID[q.ID]; dup {
		return "duplicate id"
	}
	if _, ok := b.catalog.Get(q.LessonID); !ok {
		return "unknown lesson"
	}
	if verr := problemgen.Validate(&q, problemgen.DefaultValidators()); verr != nil {
		return verr.Message
	}
	return ""
}

// Lessons returns the lesson catalog in its fixed order.
func (b *Bank) Lessons() []curriculum.Lesson {
	return b.catalog.Lessons()
}

// Catalog returns the bank's lesson catalog.
func (b *Bank) Catalog() *curriculum.Catalog {
	return b.catalog
}

// Available returns every question for the given tier and lessons whose id
// is not excluded, in bank order. A nil excluded excludes nothing. The
// result is a fresh copy.
func (b *Bank) Available(tier curriculum.Tier, lessonIDs []string, excluded func(id string) bool) []problemgen.Question {
	var out []problemgen.Question
	for _, lesson := range lessonIDs {
		for _, q := range b.index[cell{lesson, tier}] {
			if excluded != nil && excluded(q.ID) {
				continue
			}
			out = append(out, q.Clone())
		}
	}
	return out
}

// Count returns how many questions exist for a lesson and tier.
func (b *Bank) Count(lessonID string, tier curriculum.Tier) int {
	return len(b.index[cell{lessonID, tier}])
}

// Question looks up a question by id.
func (b *Bank) Question(id string) (problemgen.Question, bool) {
	q, ok := b.byID[id]
	if !ok {
		return problemgen.Question{}, false
	}
	return q.Clone(), true
}

// Stats describes what was loaded and dropped.
func (b *Bank) Stats() LoadStats {
	s := b.stats
	s.Dropped = make(map[string]int, len(b.stats.Dropped))
	for k, v := range b.stats.Dropped {
		s.Dropped[k] = v
	}
	return s
}

// LoadStats summarizes a bank load.
type LoadStats struct {
	Files     int
	Lessons   int
	Questions int
	// Dropped counts rejected questions by reason.
	Dropped map[string]int
}

// DroppedTotal returns the number of rejected questions.
func (s LoadStats) DroppedTotal() int {
	n := 0
	for _, v := range s.Dropped {
		n += v
	}
	return n
}

// DropReasons returns the drop reasons sorted for display.
func (s LoadStats) DropReasons() []string {
	reasons := make([]string, 0, len(s.Dropped))
	for r := range s.Dropped {
		reasons = append(reasons, r)
	}
	slices.Sort(reasons)
	return reasons
}
