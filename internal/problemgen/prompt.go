package problemgen

import (
	"fmt"
	"strings"

	"github.com/abhisek/tierloop/internal/curriculum"
)

const questionSystemPrompt = `You write multiple-choice practice questions for school learners.

Rules:
- Every question has exactly 4 distinct options and exactly one correct option.
- Distractors should reflect common mistakes, not random values.
- Use plain ASCII text. No LaTeX, no Unicode symbols.
- Questions must be self-contained and age-appropriate.
- The explanation shows the solution in one to three short steps.
- Match the requested difficulty tier:
  recognition = identify or recall the idea,
  comprehension = explain or compare,
  application = use the idea in a new situation.`

const theorySystemPrompt = `You are a patient tutor. Explain one idea briefly and concretely for a school learner.
Use plain ASCII text and include one small worked example.`

func buildIsomorphMessage(src Question, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d new questions that test exactly the same idea as the question below,\n", n)
	b.WriteString("with different numbers or wording. Do not repeat the original.\n\n")
	fmt.Fprintf(&b, "Lesson: %s\n", src.LessonID)
	fmt.Fprintf(&b, "Tier: %s\n", src.Tier)
	fmt.Fprintf(&b, "Original question: %s\n", src.Prompt)
	b.WriteString("Original options:\n")
	b.WriteString(formatChoices(src.Choices))
	if c := src.CorrectChoice(); c != "" {
		fmt.Fprintf(&b, "\nCorrect option: %s", c)
	}
	return b.String()
}

func buildTopicMessage(lesson curriculum.Lesson, tier curriculum.Tier, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d questions for this lesson.\n\n", n)
	writeLesson(&b, lesson, tier)
	return b.String()
}

func buildTheoryMessage(lesson curriculum.Lesson, tier curriculum.Tier) string {
	var b strings.Builder
	b.WriteString("Explain the key idea of this lesson.\n\n")
	writeLesson(&b, lesson, tier)
	return b.String()
}

func writeLesson(b *strings.Builder, lesson curriculum.Lesson, tier curriculum.Tier) {
	name := lesson.Name
	if name == "" {
		name = lesson.ID
	}
	fmt.Fprintf(b, "Lesson: %s\n", name)
	if lesson.Description != "" {
		fmt.Fprintf(b, "Description: %s\n", lesson.Description)
	}
	fmt.Fprintf(b, "Tier: %s", tier)
}

func formatChoices(choices []string) string {
	if len(choices) == 0 {
		return "None"
	}
	var b strings.Builder
	for i, c := range choices {
		fmt.Fprintf(&b, "%c. %s\n", 'A'+rune(i), c)
	}
	return strings.TrimRight(b.String(), "\n")
}
