package problemgen

import (
	"strings"
	"testing"

	"github.com/abhisek/tierloop/internal/curriculum"
)

func validQuestion() Question {
	return Question{
		ID:           "q1",
		LessonID:     "fractions",
		Tier:         curriculum.TierRecognition,
		Prompt:       "Which fraction equals one half?",
		Choices:      []string{"1/3", "2/4", "3/4", "1/4"},
		CorrectIndex: 1,
		Explanation:  "2/4 simplifies to 1/2.",
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *Question)
		validator string
	}{
		{"valid", func(q *Question) {}, ""},
		{"empty prompt", func(q *Question) { q.Prompt = "   " }, "structural"},
		{"long prompt", func(q *Question) { q.Prompt = strings.Repeat("x", 501) }, "structural"},
		{"long explanation", func(q *Question) { q.Explanation = strings.Repeat("x", 1001) }, "structural"},
		{"missing lesson", func(q *Question) { q.LessonID = "" }, "structural"},
		{"bad tier", func(q *Question) { q.Tier = curriculum.Tier(9) }, "structural"},
		{"three choices", func(q *Question) { q.Choices = q.Choices[:3] }, "choices"},
		{"five choices", func(q *Question) { q.Choices = append(q.Choices, "5/5") }, "choices"},
		{"index negative", func(q *Question) { q.CorrectIndex = -1 }, "choices"},
		{"index too large", func(q *Question) { q.CorrectIndex = 4 }, "choices"},
		{"empty choice", func(q *Question) { q.Choices[2] = "" }, "choices"},
		{"duplicate choice", func(q *Question) { q.Choices[3] = "1/3" }, "choices"},
		{"duplicate choice ignoring case", func(q *Question) {
			q.Choices = []string{"Yes", "no", "YES", "maybe"}
		}, "choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestion()
			tt.mutate(&q)
			verr := Validate(&q, DefaultValidators())
			if tt.validator == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatalf("expected %s failure, got nil", tt.validator)
			}
			if verr.Validator != tt.validator {
				t.Errorf("validator = %q, want %q", verr.Validator, tt.validator)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Validator: "choices", Message: "must have exactly 4 choices"}
	want := `validator "choices": must have exactly 4 choices`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestQuestion_CloneIsDeep(t *testing.T) {
	q := validQuestion()
	c := q.Clone()
	c.Choices[0] = "changed"
	if q.Choices[0] == "changed" {
		t.Fatal("clone shares choices with original")
	}
}
