// Package review derives performance summaries from slices of the answer
// log. Reviews are recomputable and are never the system of record.
package review

import (
	"time"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/diagnosis"
	"github.com/abhisek/tierloop/internal/evaluator"
	"github.com/abhisek/tierloop/internal/flow"
)

// Accuracy thresholds, in permille, for the per-lesson flags.
const (
	WeakBelowPermille  = 600
	StrongFromPermille = 800
)

// LessonStats summarizes answers for one lesson.
type LessonStats struct {
	LessonID string  `json:"lesson_id"`
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
	Weak     bool    `json:"weak"`
	Strong   bool    `json:"strong"`
}

// Overall summarizes every answer in the slice.
type Overall struct {
	Count     int           `json:"count"`
	Correct   int           `json:"correct"`
	Accuracy  float64       `json:"accuracy"`
	TotalTime time.Duration `json:"total_time"`
}

// MissedItem explains one wrong answer in a detailed review.
type MissedItem struct {
	QuestionID  string `json:"question_id"`
	LessonID    string `json:"lesson_id"`
	Round       int    `json:"round,omitempty"`
	Prompt      string `json:"prompt"`
	Chosen      string `json:"chosen"`
	Correct     string `json:"correct"`
	Explanation string `json:"explanation,omitempty"`

	// Cause is the likely reason for the miss.
	Cause diagnosis.Cause `json:"cause,omitempty"`
}

// TheoryNote is background text for a weak lesson.
type TheoryNote struct {
	LessonID string `json:"lesson_id"`
	Text     string `json:"text"`
}

// Narrative sources.
const (
	SourceNarrator = "narrator"
	SourceStatic   = "static"
)

// Review is a computed summary over a slice of the answer log.
type Review struct {
	Tier            curriculum.Tier `json:"tier"`
	Kind            flow.ReviewKind `json:"kind"`
	Round           int             `json:"round,omitempty"`
	Passed          bool            `json:"passed"`
	Lessons         []LessonStats   `json:"lessons"`
	Overall         Overall         `json:"overall"`
	Recommendations []string        `json:"recommendations"`
	NarrativeSource string          `json:"narrative_source"`

	// Missed and Theory are filled for failed-remediation reviews.
	Missed []MissedItem `json:"missed,omitempty"`
	Theory []TheoryNote `json:"theory,omitempty"`
}

// WeakLessons returns the ids of lessons flagged weak.
func (r Review) WeakLessons() []string {
	var out []string
	for _, l := range r.Lessons {
		if l.Weak {
			out = append(out, l.LessonID)
		}
	}
	return out
}

// Record is the review-history entry appended when a session enters a
// review state.
type Record struct {
	Tier    curriculum.Tier `json:"tier"`
	Kind    flow.ReviewKind `json:"kind"`
	Round   int             `json:"round,omitempty"`
	Passed  bool            `json:"passed"`
	Correct int             `json:"correct"`
	Total   int             `json:"total"`
	At      time.Time       `json:"at"`
}

// accuracy returns correct/count, or 0 when count is 0.
func accuracy(correct, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(correct) / float64(count)
}

// Summarize computes per-lesson and overall statistics. Lessons are listed
// in catalog order; lessons missing from the catalog follow in order of
// first appearance.
func Summarize(answers []evaluator.Answer, catalog *curriculum.Catalog) ([]LessonStats, Overall) {
	byLesson := make(map[string]*LessonStats)
	var order []string
	var overall Overall

	for _, a := range answers {
		s, ok := byLesson[a.LessonID]
		if !ok {
			s = &LessonStats{LessonID: a.LessonID, Name: a.LessonID}
			if catalog != nil {
				s.Name = catalog.Name(a.LessonID)
			}
			byLesson[a.LessonID] = s
			order = append(order, a.LessonID)
		}
		s.Count++
		overall.Count++
		overall.TotalTime += a.Elapsed
		if a.Correct {
			s.Correct++
			overall.Correct++
		}
	}
	overall.Accuracy = accuracy(overall.Correct, overall.Count)

	var ids []string
	if catalog != nil {
		for _, id := range catalog.IDs() {
			if _, ok := byLesson[id]; ok {
				ids = append(ids, id)
			}
		}
	}
	for _, id := range order {
		if catalog == nil {
			ids = append(ids, id)
			continue
		}
		if _, known := catalog.Get(id); !known {
			ids = append(ids, id)
		}
	}

	stats := make([]LessonStats, 0, len(ids))
	for _, id := range ids {
		s := *byLesson[id]
		s.Accuracy = accuracy(s.Correct, s.Count)
		if s.Count > 0 {
			s.Weak = s.Correct*1000 < WeakBelowPermille*s.Count
			s.Strong = s.Correct*1000 >= StrongFromPermille*s.Count
		}
		stats = append(stats, s)
	}
	return stats, overall
}
