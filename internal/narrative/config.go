package narrative

// Config holds recommendation generation settings.
type Config struct {
	MaxTokens          int
	Temperature        float64
	MaxRecommendations int
}

// DefaultConfig returns sensible defaults for recommendation generation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:          512,
		Temperature:        0.5,
		MaxRecommendations: 5,
	}
}
