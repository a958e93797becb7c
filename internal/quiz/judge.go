package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/llm"
)

// PurposeJudge labels free-text judging requests.
const PurposeJudge = "judge-answer"

// AnswerJudge decides whether a submitted answer is correct.
type AnswerJudge interface {
	Judge(ctx context.Context, q agent.QuizQuestion, answer string) (agent.Evaluation, error)
}

// ExactJudge accepts only normalized exact matches.
type ExactJudge struct{}

func (ExactJudge) Judge(_ context.Context, q agent.QuizQuestion, answer string) (agent.Evaluation, error) {
	return exactEvaluation(q, answer), nil
}

func exactEvaluation(q agent.QuizQuestion, answer string) agent.Evaluation {
	correct := CheckAnswer(answer, q.Expected)
	return agent.Evaluation{
		QuestionID: q.ID,
		Correct:    correct,
		Feedback:   feedback(q, correct),
		Judge:      "exact",
	}
}

func feedback(q agent.QuizQuestion, correct bool) string {
	var b strings.Builder
	if correct {
		b.WriteString("Correct!")
	} else {
		fmt.Fprintf(&b, "Not quite. Expected: %s", q.Expected.Answer)
	}
	if q.Explanation != "" {
		b.WriteString(" ")
		b.WriteString(q.Explanation)
	}
	return b.String()
}

// JudgeConfig holds configuration for the LLM judge.
type JudgeConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultJudgeConfig returns sensible defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		MaxTokens:   256,
		Temperature: 0.0,
	}
}

// LLMJudge matches exactly first and asks the model only for free-text
// answers that miss.
type LLMJudge struct {
	provider llm.Provider
	cfg      JudgeConfig
}

// NewLLMJudge creates an LLM-backed judge.
func NewLLMJudge(provider llm.Provider, cfg JudgeConfig) *LLMJudge {
	return &LLMJudge{provider: provider, cfg: cfg}
}

type judgementOutput struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

func (j *LLMJudge) Judge(ctx context.Context, q agent.QuizQuestion, answer string) (agent.Evaluation, error) {
	eval := exactEvaluation(q, answer)
	if eval.Correct || q.Expected.Kind != agent.AnswerFreeText || strings.TrimSpace(answer) == "" {
		return eval, nil
	}

	userMsg, err := buildJudgeMessage(q, strings.TrimSpace(answer))
	if err != nil {
		return agent.Evaluation{}, fmt.Errorf("build judge prompt: %w", err)
	}

	resp, err := j.provider.Generate(llm.WithPurpose(ctx, PurposeJudge), llm.Request{
		System:      judgeSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: userMsg}},
		Directives:  []llm.Directive{llm.DirectiveJudgeAnswer},
		Schema:      JudgementSchema,
		MaxTokens:   j.cfg.MaxTokens,
		Temperature: j.cfg.Temperature,
	})
	if err != nil {
		return agent.Evaluation{}, fmt.Errorf("%w: judge answer: %w", agent.ErrGenerationUnavailable, err)
	}

	var raw judgementOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return agent.Evaluation{}, fmt.Errorf("%w: parse judgement: %w", agent.ErrGenerationUnavailable, err)
	}

	fb := strings.TrimSpace(raw.Feedback)
	if fb == "" {
		fb = feedback(q, raw.Correct)
	}
	return agent.Evaluation{
		QuestionID: q.ID,
		Correct:    raw.Correct,
		Feedback:   fb,
		Judge:      "llm",
	}, nil
}
