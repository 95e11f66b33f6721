package problemgen

import "github.com/abhisek/tierloop/internal/llm"

var questionItemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"prompt": map[string]any{
			"type":        "string",
			"description": "The question shown to the learner, in plain text",
		},
		"choices": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"minItems":    4,
			"maxItems":    4,
			"description": "Exactly 4 distinct options",
		},
		"correct_index": map[string]any{
			"type":        "integer",
			"minimum":     0,
			"maximum":     3,
			"description": "0-based index of the correct option",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Short worked solution shown after answering",
		},
	},
	"required":             []any{"prompt", "choices", "correct_index", "explanation"},
	"additionalProperties": false,
}

// QuestionSetSchema defines the JSON schema for question batch responses.
var QuestionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "A batch of multiple-choice practice questions",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":  "array",
				"items": questionItemSchema,
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}

// TheorySchema defines the JSON schema for theory responses.
var TheorySchema = &llm.Schema{
	Name:        "lesson-theory",
	Description: "A short explanation of a lesson's key idea",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"theory": map[string]any{
				"type":        "string",
				"description": "Two to five sentences explaining the idea, with one small example",
			},
		},
		"required":             []any{"theory"},
		"additionalProperties": false,
	},
}
