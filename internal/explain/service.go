// Package explain generates cell explanations: the overall summary, the
// per-line breakdown, simplified re-explanations, and answers to learner
// questions.
package explain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/celltutor/internal/agent"
	"github.com/abhisek/celltutor/internal/llm"
)

// Purpose labels recorded with each LLM request.
const (
	PurposeSummary  = "explain-summary"
	PurposeLines    = "explain-lines"
	PurposeSimplify = "explain-simplify"
	PurposeAsk      = "ask"
)

// PlaceholderText is substituted for lines the model did not explain.
const PlaceholderText = "No explanation was generated for this line."

// Service produces explanations with an LLM provider.
type Service struct {
	provider llm.Provider
	cfg      Config
}

// NewService creates a new explanation service.
func NewService(provider llm.Provider, cfg Config) *Service {
	return &Service{provider: provider, cfg: cfg}
}

type summaryOutput struct {
	Summary string `json:"summary"`
}

type lineOutput struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type linesOutput struct {
	Lines []lineOutput `json:"lines"`
}

type simplifyOutput struct {
	Text string `json:"text"`
}

type askOutput struct {
	Answer string `json:"answer"`
}

// Summary returns a short explanation of the whole cell.
func (s *Service) Summary(ctx context.Context, cell agent.CodeCell, facts agent.Facts) (string, error) {
	var out summaryOutput
	err := s.generate(llm.WithPurpose(ctx, PurposeSummary), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildSummaryUserMessage(cell, facts)}},
		Schema:      SummarySchema,
		MaxTokens:   s.cfg.SummaryMaxTokens,
		Temperature: s.cfg.Temperature,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("explain summary: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", fmt.Errorf("%w: explain summary: empty summary", agent.ErrGenerationUnavailable)
	}
	return strings.TrimSpace(out.Summary), nil
}

// Lines returns one explanation per physical line of the cell.
func (s *Service) Lines(ctx context.Context, cell agent.CodeCell) ([]agent.LineExplanation, error) {
	lines := cell.Lines()
	if len(lines) == 0 {
		return nil, nil
	}

	var out linesOutput
	err := s.generate(llm.WithPurpose(ctx, PurposeLines), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildLinesUserMessage(cell)}},
		Schema:      LinesSchema,
		MaxTokens:   s.cfg.LinesMaxTokens,
		Temperature: s.cfg.Temperature,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("explain lines: %w", err)
	}
	return align(lines, out.Lines), nil
}

// Simplify returns a simpler re-explanation for a learner who is struggling.
func (s *Service) Simplify(ctx context.Context, cell agent.CodeCell, original *agent.Explanation, in SimplifyInput) (string, error) {
	var out simplifyOutput
	err := s.generate(llm.WithPurpose(ctx, PurposeSimplify), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildSimplifyUserMessage(cell, original, in)}},
		Directives:  []llm.Directive{llm.DirectiveSimplify},
		Schema:      SimplifySchema,
		MaxTokens:   s.cfg.SummaryMaxTokens,
		Temperature: s.cfg.Temperature,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("simplify explanation: %w", err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("%w: simplify explanation: empty text", agent.ErrGenerationUnavailable)
	}
	return text, nil
}

// Ask answers a free-form learner question about the cell.
func (s *Service) Ask(ctx context.Context, cell agent.CodeCell, expl *agent.Explanation, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("ask: empty question")
	}

	var out askOutput
	err := s.generate(llm.WithPurpose(ctx, PurposeAsk), llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildAskUserMessage(cell, expl, question)}},
		Schema:      AskSchema,
		MaxTokens:   s.cfg.AskMaxTokens,
		Temperature: s.cfg.Temperature,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("ask: %w", err)
	}
	answer := strings.TrimSpace(out.Answer)
	if answer == "" {
		return "", fmt.Errorf("%w: ask: empty answer", agent.ErrGenerationUnavailable)
	}
	return answer, nil
}

// generate runs req and decodes the structured response into out. Provider
// and decoding failures both surface as ErrGenerationUnavailable.
func (s *Service) generate(ctx context.Context, req llm.Request, out any) error {
	resp, err := s.provider.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", agent.ErrGenerationUnavailable, err)
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return fmt.Errorf("%w: parse response: %w", agent.ErrGenerationUnavailable, err)
	}
	return nil
}

// align maps model output onto the physical lines. The result always has
// len(lines) entries in source order: missing or out-of-range indexes get
// PlaceholderText and duplicate indexes keep the first occurrence.
func align(lines []string, raw []lineOutput) []agent.LineExplanation {
	out := make([]agent.LineExplanation, len(lines))
	seen := make([]bool, len(lines))

	for _, r := range raw {
		if r.Index < 0 || r.Index >= len(lines) || seen[r.Index] {
			continue
		}
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		seen[r.Index] = true
		out[r.Index] = agent.LineExplanation{Index: r.Index, Source: lines[r.Index], Text: text}
	}

	for i := range out {
		if !seen[i] {
			out[i] = agent.LineExplanation{
				Index:       i,
				Source:      lines[i],
				Text:        PlaceholderText,
				Placeholder: true,
			}
		}
	}
	return out
}
