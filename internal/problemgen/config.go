package problemgen

import "time"

// Config controls the behavior of the LLMGenerator.
type Config struct {
	// MaxTokens is the token budget for a question batch response.
	MaxTokens int

	// TheoryMaxTokens is the token budget for a theory response.
	TheoryMaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxBatch caps how many questions are requested in one call.
	MaxBatch int
}

// DefaultConfig returns a Config with recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:       2048,
		TheoryMaxTokens: 512,
		Temperature:     0.7,
		MaxBatch:        8,
	}
}

// DefaultTimeout bounds a single generator call made through an Adapter.
const DefaultTimeout = 20 * time.Second
