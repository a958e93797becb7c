package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate with a Request and receive structured JSON.
type Provider interface {
	// Generate sends a prompt to the LLM and returns a structured response.
	// The request's Schema field, when set, instructs the provider to return
	// JSON conforming to that schema. The response Content will be the
	// validated JSON.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. For single-turn generation
	// (every call celltutor makes), this contains one user message.
	Messages []Message

	// Directives are behavioral switches appended to the system prompt,
	// such as "simplify" for re-explanations.
	Directives []Directive

	// Schema is the JSON Schema the response must conform to.
	// When set, the provider uses its native structured output mechanism.
	// When nil, the response Content is raw text as json.RawMessage.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies this schema (used as tool name for Anthropic,
	// schema name for OpenAI). Kebab-case, e.g. "quiz-question".
	Name string

	// Description is a human-readable description of what this schema
	// represents. Sent to the LLM to guide generation.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is the generated output. When a Schema was provided in the
	// request, this is the validated JSON object. When no Schema was
	// provided, this is the raw text response wrapped as a JSON string.
	Content json.RawMessage

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped: StopEnd or StopMaxTokens.
	StopReason string
}

// Normalized stop reasons.
const (
	StopEnd       = "end"
	StopMaxTokens = "max_tokens"
)

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Directive is a named instruction that changes how the model responds.
type Directive string

const (
	// DirectiveSimplify asks for a simpler re-explanation aimed at a
	// struggling learner.
	DirectiveSimplify Directive = "simplify"

	// DirectiveJudgeAnswer asks the model to grade a free-text answer.
	DirectiveJudgeAnswer Directive = "judge_answer"
)

var directiveText = map[Directive]string{
	DirectiveSimplify:    "Use shorter sentences, everyday analogies, and no jargon. Assume the learner found the previous explanation hard to follow.",
	DirectiveJudgeAnswer: "Judge whether the learner's answer means the same thing as the expected answer. Accept paraphrases; reject answers that are wrong or too vague.",
}

// complete turns a provider's raw reply into a Response. Structured
// replies are unfenced and validated; a structured reply cut off by the
// token limit is reported as *ErrMaxTokensExceeded since it cannot parse.
func complete(req Request, text string, usage Usage, model, stop string) (*Response, error) {
	content := json.RawMessage(text)
	if req.Schema != nil {
		content = json.RawMessage(unfence(text))
		if stop == StopMaxTokens {
			return nil, &ErrMaxTokensExceeded{Content: content, Limit: req.MaxTokens}
		}
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}
	return &Response{
		Content:    content,
		Usage:      usage,
		Model:      model,
		StopReason: stop,
	}, nil
}

// systemPrompt renders the request's system prompt with its directives.
func systemPrompt(req Request) string {
	if len(req.Directives) == 0 {
		return req.System
	}
	var b strings.Builder
	b.WriteString(req.System)
	b.WriteString("\n\nDirectives:\n")
	for _, d := range req.Directives {
		text, ok := directiveText[d]
		if !ok {
			text = string(d)
		}
		fmt.Fprintf(&b, "- %s: %s\n", d, text)
	}
	return strings.TrimLeft(b.String(), "\n")
}
