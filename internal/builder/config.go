package builder

import (
	"fmt"

	"github.com/abhisek/celltutor/internal/agent"
)

// Config selects what the builder generates for an agent.
type Config struct {
	Detail        agent.Detail `yaml:"detail"`
	QuizCount     int          `yaml:"quiz_count"`
	VisualEnabled bool         `yaml:"visual"`
}

// DefaultConfig returns the build settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Detail:        agent.DetailCoarse,
		QuizCount:     3,
		VisualEnabled: true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if !c.Detail.Valid() {
		return fmt.Errorf("detail must be %q or %q, got %q", agent.DetailCoarse, agent.DetailLineByLine, c.Detail)
	}
	if c.QuizCount < 0 {
		return fmt.Errorf("quiz count must be >= 0, got %d", c.QuizCount)
	}
	return nil
}

// tierCycle is the order of targets after the first question.
var tierCycle = []agent.Tier{agent.TierEasy, agent.TierHard, agent.TierMedium}

// TierPlan returns the target tier for each of n questions. The first
// targets the default tier; the rest cycle through all tiers so the bank
// gives the adaptation policy room to move.
func TierPlan(n int) []agent.Tier {
	plan := make([]agent.Tier, 0, n)
	for i := range n {
		if i == 0 {
			plan = append(plan, agent.DefaultTier)
			continue
		}
		plan = append(plan, tierCycle[(i-1)%len(tierCycle)])
	}
	return plan
}
