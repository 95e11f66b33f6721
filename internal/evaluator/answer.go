package evaluator

import (
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/problemgen"
)

// ErrInvalidSubmission is matched by every *SubmissionError.
var ErrInvalidSubmission = errors.New("invalid submission")

// SubmissionError describes why an answer set was rejected.
type SubmissionError struct {
	QuestionID string
	Reason     string
}

func (e *SubmissionError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("invalid submission: %s", e.Reason)
	}
	return fmt.Sprintf("invalid submission for %q: %s", e.QuestionID, e.Reason)
}

func (e *SubmissionError) Unwrap() error { return ErrInvalidSubmission }

// Submission is one learner response as received from a client. The
// orchestrator stamps SubmittedAt before grading.
type Submission struct {
	QuestionID  string        `json:"question_id"`
	Choice      int           `json:"choice"`
	Elapsed     time.Duration `json:"elapsed"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// Answer is a graded submission. Answers are append-only once logged.
type Answer struct {
	QuestionID   string          `json:"question_id"`
	LessonID     string          `json:"lesson_id"`
	Tier         curriculum.Tier `json:"tier"`
	Round        int             `json:"round"` // 0 for the primary bundle
	Choice       int             `json:"choice"`
	CorrectIndex int             `json:"correct_index"`
	Correct      bool            `json:"correct"`
	Elapsed      time.Duration   `json:"elapsed"`
	SubmittedAt  time.Time       `json:"submitted_at"`
}

// Grade checks subs against the presented questions and returns one Answer
// per submission in submission order. Every question must be answered
// exactly once with a choice in range.
func Grade(questions []problemgen.Question, subs []Submission, round int) ([]Answer, error) {
	byID := make(map[string]problemgen.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	seen := make(map[string]bool, len(subs))
	answers := make([]Answer, 0, len(subs))
	for _, s := range subs {
		q, ok := byID[s.QuestionID]
		if !ok {
			return nil, &SubmissionError{QuestionID: s.QuestionID, Reason: "question was not presented"}
		}
		if seen[s.QuestionID] {
			return nil, &SubmissionError{QuestionID: s.QuestionID, Reason: "answered more than once"}
		}
		if s.Choice < 0 || s.Choice >= len(q.Choices) {
			return nil, &SubmissionError{QuestionID: s.QuestionID, Reason: fmt.Sprintf("choice %d out of range", s.Choice)}
		}
		if s.Elapsed < 0 {
			return nil, &SubmissionError{QuestionID: s.QuestionID, Reason: "negative elapsed time"}
		}
		seen[s.QuestionID] = true
		answers = append(answers, Answer{
			QuestionID:   q.ID,
			LessonID:     q.LessonID,
			Tier:         q.Tier,
			Round:        round,
			Choice:       s.Choice,
			CorrectIndex: q.CorrectIndex,
			Correct:      s.Choice == q.CorrectIndex,
			Elapsed:      s.Elapsed,
			SubmittedAt:  s.SubmittedAt,
		})
	}

	if len(answers) != len(questions) {
		for _, q := range questions {
			if !seen[q.ID] {
				return nil, &SubmissionError{QuestionID: q.ID, Reason: "not answered"}
			}
		}
	}
	return answers, nil
}

// CountCorrect returns the number of correct answers.
func CountCorrect(answers []Answer) int {
	n := 0
	for _, a := range answers {
		if a.Correct {
			n++
		}
	}
	return n
}

// WeakLessons returns the lesson ids of wrong answers, deduplicated in
// order of first occurrence.
func WeakLessons(answers []Answer) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range answers {
		if a.Correct || seen[a.LessonID] {
			continue
		}
		seen[a.LessonID] = true
		out = append(out, a.LessonID)
	}
	return out
}
