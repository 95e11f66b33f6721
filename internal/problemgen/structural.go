package problemgen

import "strings"

const (
	maxPromptLen      = 500
	maxExplanationLen = 1000
	maxChoiceLen      = 200
)

// StructuralValidator checks that required fields are present and within
// length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	switch {
	case q.LessonID == "":
		return v.fail("lesson_id is empty", false)
	case !q.Tier.Valid():
		return v.fail("tier is not valid", false)
	case strings.TrimSpace(q.Prompt) == "":
		return v.fail("prompt is empty", true)
	case len(q.Prompt) > maxPromptLen:
		return v.fail("prompt exceeds 500 characters", true)
	case len(q.Explanation) > maxExplanationLen:
		return v.fail("explanation exceeds 1000 characters", true)
	}
	return nil
}

func (v *StructuralValidator) fail(msg string, retryable bool) *ValidationError {
	return &ValidationError{Validator: v.Name(), Message: msg, Retryable: retryable}
}

// ChoiceValidator enforces exactly four distinct non-empty options and an
// in-range correct index.
type ChoiceValidator struct{}

func (v *ChoiceValidator) Name() string { return "choices" }

func (v *ChoiceValidator) Validate(q *Question) *ValidationError {
	if len(q.Choices) != ChoiceCount {
		return v.fail("must have exactly 4 choices")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= ChoiceCount {
		return v.fail("correct_index out of range")
	}
	seen := make(map[string]struct{}, ChoiceCount)
	for _, c := range q.Choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return v.fail("choice is empty")
		}
		if len(c) > maxChoiceLen {
			return v.fail("choice exceeds 200 characters")
		}
		key := strings.ToLower(c)
		if _, dup := seen[key]; dup {
			return v.fail("choices are not distinct")
		}
		seen[key] = struct{}{}
	}
	return nil
}

func (v *ChoiceValidator) fail(msg string) *ValidationError {
	return &ValidationError{Validator: v.Name(), Message: msg, Retryable: true}
}
