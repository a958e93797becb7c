package explain

// Config holds explanation generation settings.
type Config struct {
	SummaryMaxTokens int
	LinesMaxTokens   int
	AskMaxTokens     int
	Temperature      float64
}

// DefaultConfig returns sensible defaults for explanation generation.
func DefaultConfig() Config {
	return Config{
		SummaryMaxTokens: 512,
		LinesMaxTokens:   2048,
		AskMaxTokens:     512,
		Temperature:      0.3,
	}
}
