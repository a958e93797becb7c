// Package quiz generates quiz questions about a code cell and judges the
// learner's answers.
package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/llm"
)

// PurposeGenerate labels question generation requests.
const PurposeGenerate = "quiz-gen"

// FallbackPrompt is asked when generation keeps failing validation.
const FallbackPrompt = "In your own words, describe what this cell does."

// Generator produces quiz questions for a cell.
type Generator interface {
	// Generate produces a single validated question for the given input.
	Generate(ctx context.Context, input GenerateInput) (*agent.QuizQuestion, error)
}

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{provider: provider, config: cfg, logger: logger}
}

// questionOutput is the raw LLM response before validation.
type questionOutput struct {
	Prompt      string   `json:"prompt"`
	Kind        string   `json:"kind"`
	Answer      string   `json:"answer"`
	Choices     []string `json:"choices"`
	Explanation string   `json:"explanation"`
}

// Generate produces a single question for the given input context. The
// question has no ID; the caller assigns one when adding it to a bank.
func (g *LLMGenerator) Generate(ctx context.Context, input GenerateInput) (*agent.QuizQuestion, error) {
	ctx = llm.WithPurpose(ctx, PurposeGenerate)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.temperatureFor(input.Tier),
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: quiz generation: %w", agent.ErrGenerationUnavailable, err)
	}

	var raw questionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse quiz response: %w", agent.ErrGenerationUnavailable, err)
	}

	q := &agent.QuizQuestion{
		Prompt: strings.TrimSpace(raw.Prompt),
		Expected: agent.AnswerSpec{
			Answer:  strings.TrimSpace(raw.Answer),
			Kind:    agent.AnswerKind(raw.Kind),
			Choices: raw.Choices,
		},
		Tier:        input.Tier,
		Explanation: strings.TrimSpace(raw.Explanation),
	}
	if len(q.Expected.Choices) == 0 {
		q.Expected.Choices = nil
	}

	for _, v := range g.config.Validators {
		if verr := v.Validate(q, input); verr != nil {
			return nil, verr
		}
	}
	return q, nil
}

// GenerateOrFallback generates a question, regenerating once when the
// first attempt fails validation. A second validation failure yields the
// fallback question instead. Provider failures are returned as is.
func GenerateOrFallback(ctx context.Context, g Generator, input GenerateInput, logger *slog.Logger) (*agent.QuizQuestion, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		q, err := g.Generate(ctx, input)
		if err == nil {
			return q, nil
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		lastErr = err
		logger.Debug("quiz question rejected",
			"cell_id", input.Cell.ID,
			"tier", input.Tier.String(),
			"attempt", attempt,
			"validator", verr.Validator,
			"reason", verr.Message)
	}

	logger.Info("using fallback quiz question",
		"cell_id", input.Cell.ID,
		"tier", input.Tier.String(),
		"error", lastErr)
	return Fallback(input), nil
}

// Fallback returns the free-text "describe this cell" question.
func Fallback(input GenerateInput) *agent.QuizQuestion {
	answer := strings.TrimSpace(input.Summary)
	if answer == "" {
		answer = "A description of what the code in this cell does."
	}
	return &agent.QuizQuestion{
		Prompt: FallbackPrompt,
		Expected: agent.AnswerSpec{
			Answer: answer,
			Kind:   agent.AnswerFreeText,
		},
		Tier: input.Tier,
	}
}
