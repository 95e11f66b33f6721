package problemgen

import (
	"slices"

	"github.com/abhisek/tierloop/internal/curriculum"
)

// ChoiceCount is the number of options every schedulable question carries.
const ChoiceCount = 4

// Origin records where a question came from.
type Origin string

const (
	OriginBank        Origin = "bank"
	OriginGenerated   Origin = "generated"
	OriginPlaceholder Origin = "placeholder"
	OriginDuplicate   Origin = "duplicate"
)

// Question is a multiple-choice item ready for display.
type Question struct {
	ID       string          `json:"id"`
	LessonID string          `json:"lesson_id"`
	Tier     curriculum.Tier `json:"tier"`

	// Prompt is the question text shown to the learner.
	Prompt string `json:"prompt"`

	// Choices holds exactly ChoiceCount options.
	Choices []string `json:"choices"`

	// CorrectIndex is the 0-based index of the correct option.
	CorrectIndex int `json:"correct_index"`

	// Explanation is a brief worked solution shown after answering.
	Explanation string `json:"explanation,omitempty"`

	// Theory is optional background for the lesson.
	Theory string `json:"theory,omitempty"`

	// Placeholder marks synthesized stand-in content.
	Placeholder bool `json:"placeholder,omitempty"`

	Origin Origin `json:"origin"`
}

// CorrectChoice returns the text of the correct option, or "" when the
// index is out of range.
func (q Question) CorrectChoice() string {
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
		return ""
	}
	return q.Choices[q.CorrectIndex]
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	q.Choices = slices.Clone(q.Choices)
	return q
}

// Valid reports whether q passes the default validator chain.
func (q Question) Valid() bool {
	return Validate(&q, DefaultValidators()) == nil
}

// IDs returns the ids of qs in order.
func IDs(qs []Question) []string {
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	return ids
}

// CloneAll deep-copies a slice of questions.
func CloneAll(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = q.Clone()
	}
	return out
}
