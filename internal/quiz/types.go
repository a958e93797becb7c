package quiz

import "github.com/abhisek/celltutor/internal/agent"

// GenerateInput is the context for generating one quiz question.
type GenerateInput struct {
	Cell  agent.CodeCell
	Facts agent.Facts
	Tier  agent.Tier

	// Summary is the cell explanation, if already generated. It seeds the
	// fallback question's expected answer.
	Summary string

	// PriorQuestions are prompts already in the bank, for deduplication.
	PriorQuestions []string
}

// tierGuidance describes what each tier asks of the learner.
var tierGuidance = map[agent.Tier]string{
	agent.TierEasy:   "Ask about a single, visible fact in the code, such as a name, literal value, or which module is imported.",
	agent.TierMedium: "Ask what a specific line or block does, or what value a variable holds after a step.",
	agent.TierHard:   "Ask the learner to trace the code: predict output for a given input, or explain how the parts work together.",
}
