package narrative

import "github.com/abhisek/tierloop/internal/llm"

// RecommendationSchema defines the JSON schema for review recommendations.
var RecommendationSchema = &llm.Schema{
	Name:        "review-recommendations",
	Description: "Short, actionable recommendations for a learner after a review",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recommendations": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    1,
				"description": "1-5 recommendations, one sentence each, addressed to the learner",
			},
		},
		"required":             []any{"recommendations"},
		"additionalProperties": false,
	},
}
