// Package diagnosis guesses why an answer was wrong from how it was given:
// too fast to have been read, a slip in a lesson the learner otherwise
// knows, or a gap in a lesson they mostly miss.
package diagnosis

import (
	"time"

	"github.com/abhisek/tierloop/internal/evaluator"
)

// Cause classifies a wrong answer.
type Cause string

const (
	CauseRushed       Cause = "rushed"
	CauseCareless     Cause = "careless"
	CauseGap          Cause = "gap"
	CauseUnclassified Cause = "unclassified"
)

// Input is what a classifier sees about one wrong answer.
type Input struct {
	Answer evaluator.Answer

	// LessonAccuracy is the accuracy over every answer for the same lesson
	// in the reviewed slice, this one included.
	LessonAccuracy float64
}

// Result is a classification with the classifier that produced it.
type Result struct {
	Cause      Cause   `json:"cause"`
	Confidence float64 `json:"confidence"`
	Classifier string  `json:"classifier,omitempty"`
}

// Classifier is one rule. It returns ("", 0) when it does not apply.
type Classifier interface {
	Name() string
	Classify(in Input) (Cause, float64)
}

// RushedThreshold is the elapsed time (exclusive) under which a wrong
// answer counts as rushed. A zero elapsed time means the client did not
// report one and never counts.
const RushedThreshold = 2 * time.Second

// RushedClassifier flags answers given too quickly to have been read.
type RushedClassifier struct{}

func (RushedClassifier) Name() string { return "rushed" }

func (RushedClassifier) Classify(in Input) (Cause, float64) {
	if e := in.Answer.Elapsed; e > 0 && e < RushedThreshold {
		return CauseRushed, 0.9
	}
	return "", 0
}

// CarelessAbove is the lesson accuracy (exclusive) above which a miss is a
// slip.
const CarelessAbove = 0.75

// CarelessClassifier flags misses in lessons the learner mostly gets right.
type CarelessClassifier struct{}

func (CarelessClassifier) Name() string { return "careless" }

func (CarelessClassifier) Classify(in Input) (Cause, float64) {
	if in.LessonAccuracy > CarelessAbove {
		return CauseCareless, 0.8
	}
	return "", 0
}

// GapBelow is the lesson accuracy (exclusive) under which a miss points to
// a knowledge gap.
const GapBelow = 0.5

// GapClassifier flags misses in lessons the learner mostly gets wrong.
type GapClassifier struct{}

func (GapClassifier) Name() string { return "gap" }

func (GapClassifier) Classify(in Input) (Cause, float64) {
	if in.LessonAccuracy < GapBelow {
		return CauseGap, 0.7
	}
	return "", 0
}

// DefaultClassifiers returns the rules in priority order. A fast wrong
// answer is more likely a rush than a slip, so rushed goes first.
func DefaultClassifiers() []Classifier {
	return []Classifier{RushedClassifier{}, CarelessClassifier{}, GapClassifier{}}
}

// Classify runs classifiers in order and returns the first match, or
// CauseUnclassified.
func Classify(classifiers []Classifier, in Input) Result {
	for _, c := range classifiers {
		if cause, conf := c.Classify(in); cause != "" {
			return Result{Cause: cause, Confidence: conf, Classifier: c.Name()}
		}
	}
	return Result{Cause: CauseUnclassified}
}

// Diagnose classifies every wrong answer in answers, keyed by question id.
// Lesson accuracy is computed over answers itself.
func Diagnose(classifiers []Classifier, answers []evaluator.Answer) map[string]Result {
	type tally struct{ correct, count int }
	byLesson := make(map[string]tally)
	for _, a := range answers {
		t := byLesson[a.LessonID]
		t.count++
		if a.Correct {
			t.correct++
		}
		byLesson[a.LessonID] = t
	}

	out := make(map[string]Result)
	for _, a := range answers {
		if a.Correct {
			continue
		}
		t := byLesson[a.LessonID]
		out[a.QuestionID] = Classify(classifiers, Input{
			Answer:         a,
			LessonAccuracy: float64(t.correct) / float64(t.count),
		})
	}
	return out
}
