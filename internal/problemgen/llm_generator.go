package problemgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/tierloop/internal/curriculum"
	"github.com/abhisek/tierloop/internal/llm"
)

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// questionOutput is one raw item of the LLM response before validation.
type questionOutput struct {
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation"`
}

type questionSetOutput struct {
	Questions []questionOutput `json:"questions"`
}

type theoryOutput struct {
	Theory string `json:"theory"`
}

func (g *LLMGenerator) Isomorphs(ctx context.Context, src Question, n int) ([]Question, error) {
	ctx = llm.WithPurpose(ctx, "isomorphs")
	n = g.batch(n)
	return g.generateSet(ctx, buildIsomorphMessage(src, n), src.LessonID, src.Tier)
}

func (g *LLMGenerator) TopicQuestions(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier, n int) ([]Question, error) {
	ctx = llm.WithPurpose(ctx, "topic-questions")
	n = g.batch(n)
	return g.generateSet(ctx, buildTopicMessage(lesson, tier, n), lesson.ID, tier)
}

func (g *LLMGenerator) Theory(ctx context.Context, lesson curriculum.Lesson, tier curriculum.Tier) (string, error) {
	ctx = llm.WithPurpose(ctx, "theory")

	req := llm.Request{
		System: theorySystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildTheoryMessage(lesson, tier)},
		},
		Schema:      TheorySchema,
		MaxTokens:   g.config.TheoryMaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("LLM theory generation failed: %w", err)
	}

	var out theoryOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("failed to parse LLM response: %w", err)
	}
	theory := strings.TrimSpace(out.Theory)
	if theory == "" {
		return "", fmt.Errorf("LLM returned empty theory")
	}
	return theory, nil
}

func (g *LLMGenerator) generateSet(ctx context.Context, userMsg, lessonID string, tier curriculum.Tier) ([]Question, error) {
	req := llm.Request{
		System: questionSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      QuestionSetSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionSetOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	qs := make([]Question, 0, len(raw.Questions))
	for _, r := range raw.Questions {
		qs = append(qs, Question{
			LessonID:     lessonID,
			Tier:         tier,
			Prompt:       strings.TrimSpace(r.Prompt),
			Choices:      r.Choices,
			CorrectIndex: r.CorrectIndex,
			Explanation:  strings.TrimSpace(r.Explanation),
			Origin:       OriginGenerated,
		})
	}
	return qs, nil
}

func (g *LLMGenerator) batch(n int) int {
	if g.config.MaxBatch > 0 && n > g.config.MaxBatch {
		return g.config.MaxBatch
	}
	if n < 1 {
		return 1
	}
	return n
}
