package quiz

import "github.com/abhisek/celltutor/internal/agent"

// Config tunes question generation.
type Config struct {
	// Validators run in order on every generated question; the first
	// rejection wins.
	Validators []Validator

	MaxTokens int

	// Temperature is the sampling temperature for medium questions.
	// Easy questions sample cooler and hard ones warmer by TierSpread.
	Temperature float64
	TierSpread  float64

	// MaxPriorQuestions caps how many already-asked prompts are listed
	// for the model to avoid.
	MaxPriorQuestions int
}

// DefaultConfig checks structure, choice consistency, duplicates and
// grounding in the cell source.
func DefaultConfig() Config {
	return Config{
		Validators: []Validator{
			&StructuralValidator{},
			&ChoiceValidator{},
			&DedupValidator{},
			&GroundingValidator{},
		},
		MaxTokens:         512,
		Temperature:       0.7,
		TierSpread:        0.15,
		MaxPriorQuestions: 8,
	}
}

// temperatureFor clamps the tier-adjusted temperature to [0, 1].
func (c Config) temperatureFor(t agent.Tier) float64 {
	temp := c.Temperature
	switch t {
	case agent.TierEasy:
		temp -= c.TierSpread
	case agent.TierHard:
		temp += c.TierSpread
	}
	return min(max(temp, 0), 1)
}
