package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/tierloop/internal/logger"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → timeout → retry → logging → base. rec may be nil.
func NewProvider(ctx context.Context, cfg Config, log *logger.Logger, rec Recorder) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		base = NewMockProvider()
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	logged := WithLogging(base, cfg.Provider, log, rec)
	retried := WithRetry(logged, cfg.Retry)
	return WithTimeout(retried, cfg.Timeout), nil
}

// NewProviderFromEnv resolves configuration from the environment and builds
// a provider. It returns ErrNotConfigured when no provider is configured.
func NewProviderFromEnv(ctx context.Context, log *logger.Logger, rec Recorder) (Provider, error) {
	cfg, ok := ResolveConfig()
	if !ok {
		return nil, ErrNotConfigured
	}
	return NewProvider(ctx, cfg, log, rec)
}
