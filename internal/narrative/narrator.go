// Package narrative implements the review narrator on top of an LLM
// provider.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/tierloop/internal/llm"
	"github.com/abhisek/tierloop/internal/review"
)

// Narrator writes review recommendations with an LLM.
type Narrator struct {
	provider llm.Provider
	cfg      Config
}

// New creates a Narrator.
func New(provider llm.Provider, cfg Config) *Narrator {
	if cfg.MaxRecommendations <= 0 {
		cfg.MaxRecommendations = DefaultConfig().MaxRecommendations
	}
	return &Narrator{provider: provider, cfg: cfg}
}

type output struct {
	Recommendations []string `json:"recommendations"`
}

// Recommend implements review.Narrator.
func (n *Narrator) Recommend(ctx context.Context, s review.Summary) ([]string, error) {
	ctx = llm.WithPurpose(ctx, "recommendations")

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(s, n.cfg.MaxRecommendations)},
		},
		Schema:      RecommendationSchema,
		MaxTokens:   n.cfg.MaxTokens,
		Temperature: n.cfg.Temperature,
	}

	resp, err := n.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("recommendation generation: %w", err)
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return nil, fmt.Errorf("parse recommendation response: %w", err)
	}

	recs := make([]string, 0, len(out.Recommendations))
	for _, r := range out.Recommendations {
		if r = strings.TrimSpace(r); r != "" {
			recs = append(recs, r)
		}
		if len(recs) == n.cfg.MaxRecommendations {
			break
		}
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("recommendation generation: empty response")
	}
	return recs, nil
}
