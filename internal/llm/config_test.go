package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var providerEnv = []string{
	"TIERLOOP_LLM_PROVIDER", "TIERLOOP_LLM_TIMEOUT",
	"TIERLOOP_ANTHROPIC_API_KEY", "TIERLOOP_ANTHROPIC_MODEL",
	"TIERLOOP_OPENAI_API_KEY", "TIERLOOP_OPENAI_MODEL", "TIERLOOP_OPENAI_BASE_URL",
	"TIERLOOP_GEMINI_API_KEY", "TIERLOOP_GEMINI_MODEL",
	"TIERLOOP_OPENROUTER_API_KEY", "TIERLOOP_OPENROUTER_MODEL",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range providerEnv {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("TIERLOOP_LLM_PROVIDER", "openai")
	t.Setenv("TIERLOOP_OPENAI_API_KEY", "sk-test")
	t.Setenv("TIERLOOP_OPENAI_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("TIERLOOP_LLM_TIMEOUT", "5s")

	cfg := ConfigFromEnv()
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestDiscoverConfig_Priority(t *testing.T) {
	clearProviderEnv(t)
	_, ok := DiscoverConfig()
	assert.False(t, ok)

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	cfg, ok := DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "o", cfg.OpenAI.APIKey)
}

func TestResolveConfig_ExplicitWins(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("TIERLOOP_LLM_PROVIDER", "mock")

	cfg, ok := ResolveConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderMock, cfg.Provider)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"anthropic without key", Config{Provider: "anthropic"}, true},
		{"anthropic with key", Config{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k"}}, false},
		{"gemini without key", Config{Provider: "gemini"}, true},
		{"openrouter with key", Config{Provider: "openrouter", OpenRouter: OpenRouterConfig{APIKey: "k"}}, false},
		{"mock", Config{Provider: "mock"}, false},
		{"unknown", Config{Provider: "carrier-pigeon"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}

func TestNewProviderFromEnv(t *testing.T) {
	clearProviderEnv(t)
	_, err := NewProviderFromEnv(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))

	t.Setenv("TIERLOOP_LLM_PROVIDER", "mock")
	p, err := NewProviderFromEnv(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())
}
