package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// numberedLine matches source lines rendered as "N | code" in prompts and
// listItem matches numbered list entries such as "1. text".
var (
	numberedLine = regexp.MustCompile(`^\s*(\d+)\s*\|\s?(.*)$`)
	listItem     = regexp.MustCompile(`^\d+\.\s`)
)

// OfflineProvider is a deterministic Provider that needs no network. It
// builds a response that conforms to the request schema from the prompt
// text alone. It backs the "offline" provider and demo runs.
//
// When the prompt contains numbered source lines ("N | code"), array items
// that carry an "index" property are produced once per line. Other arrays
// get minItems elements, or one when the schema sets no minimum.
type OfflineProvider struct{}

// NewOfflineProvider creates an OfflineProvider.
func NewOfflineProvider() *OfflineProvider {
	return &OfflineProvider{}
}

func (p *OfflineProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompt := lastUserMessage(req)
	g := offlineGen{
		subject: subjectLine(prompt),
		lines:   numberedLines(prompt),
		simple:  slices.Contains(req.Directives, DirectiveSimplify),
	}

	var value any
	if req.Schema == nil {
		value = g.text("text")
	} else {
		value = g.value("", req.Schema.Definition)
	}

	content, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal offline response: %w", err)
	}
	if req.Schema != nil {
		if err := validateResponse(req.Schema, content); err != nil {
			return nil, err
		}
	}

	words := len(strings.Fields(req.System)) + len(strings.Fields(prompt))
	return &Response{
		Content: content,
		Usage: Usage{
			InputTokens:  words,
			OutputTokens: len(content) / 4,
			TotalTokens:  words + len(content)/4,
		},
		Model:      p.ModelID(),
		StopReason: StopEnd,
	}, nil
}

// ModelID returns "offline".
func (p *OfflineProvider) ModelID() string {
	return "offline"
}

type sourceLine struct {
	index int
	code  string
}

type offlineGen struct {
	subject string
	lines   []sourceLine
	simple  bool
}

func (g offlineGen) value(key string, def map[string]any) any {
	if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}

	switch def["type"] {
	case "object":
		props, _ := def["properties"].(map[string]any)
		out := make(map[string]any, len(props))
		for name, raw := range props {
			if propDef, ok := raw.(map[string]any); ok {
				out[name] = g.value(name, propDef)
			}
		}
		return out
	case "array":
		items, _ := def["items"].(map[string]any)
		return g.array(key, def, items)
	case "integer", "number":
		if min, ok := def["minimum"]; ok {
			return min
		}
		return 0
	case "boolean":
		return false
	default:
		return g.text(key)
	}
}

func (g offlineGen) array(key string, def, items map[string]any) []any {
	if props, ok := items["properties"].(map[string]any); ok && len(g.lines) > 0 {
		if _, hasIndex := props["index"]; hasIndex {
			out := make([]any, 0, len(g.lines))
			for _, l := range g.lines {
				out = append(out, g.lineItem(items, l))
			}
			return out
		}
	}

	n := 1
	if min, ok := asInt(def["minItems"]); ok {
		n = min
	}
	out := make([]any, 0, n)
	for i := range n {
		v := g.value(key, items)
		if s, ok := v.(string); ok && n > 1 {
			v = fmt.Sprintf("%s (%d)", s, i+1)
		}
		out = append(out, v)
	}
	return out
}

func (g offlineGen) lineItem(def map[string]any, l sourceLine) map[string]any {
	props, _ := def["properties"].(map[string]any)
	out := make(map[string]any, len(props))
	for name, raw := range props {
		propDef, _ := raw.(map[string]any)
		switch name {
		case "index":
			out[name] = l.index
		default:
			if propDef["type"] == "string" {
				out[name] = describeLine(l.code)
			} else {
				out[name] = g.value(name, propDef)
			}
		}
	}
	return out
}

func (g offlineGen) text(key string) string {
	subject := g.subject
	if subject == "" {
		subject = "the code"
	}
	prefix := ""
	if g.simple {
		prefix = "In short: "
	}
	switch {
	case strings.Contains(key, "answer"):
		return subject
	case strings.Contains(key, "question") || strings.Contains(key, "prompt"):
		return fmt.Sprintf("What does %q do?", subject)
	case strings.Contains(key, "feedback"):
		return "Compare your answer with the explanation above."
	default:
		return fmt.Sprintf("%sThis works with %s.", prefix, subject)
	}
}

// describeLine produces a short mechanical description of one line.
func describeLine(code string) string {
	trimmed := strings.TrimSpace(code)
	switch {
	case trimmed == "":
		return "Blank line."
	case strings.HasPrefix(trimmed, "#"):
		return "Comment."
	case strings.HasPrefix(trimmed, "def "):
		return "Defines a function: " + trimmed
	case strings.HasPrefix(trimmed, "class "):
		return "Defines a class: " + trimmed
	case strings.HasPrefix(trimmed, "for ") || strings.HasPrefix(trimmed, "while "):
		return "Starts a loop: " + trimmed
	case strings.HasPrefix(trimmed, "if ") || strings.HasPrefix(trimmed, "elif ") || trimmed == "else:":
		return "Branches on a condition: " + trimmed
	case strings.HasPrefix(trimmed, "return"):
		return "Returns a value: " + trimmed
	case strings.HasPrefix(trimmed, "import ") || strings.HasPrefix(trimmed, "from "):
		return "Imports a module: " + trimmed
	default:
		return "Runs: " + trimmed
	}
}

func lastUserMessage(req Request) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

// subjectLine picks a code line from the prompt, falling back to the first
// non-empty line. Each numbered list item ("1. ...") in the prompt, such as
// an already-asked list, moves the pick to the next non-blank code line so
// repeated requests about one cell differ.
func subjectLine(prompt string) string {
	var first string
	var code []string
	skip := 0
	for _, line := range strings.Split(prompt, "\n") {
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			if c := strings.TrimSpace(m[2]); c != "" {
				code = append(code, c)
			}
			continue
		}
		if listItem.MatchString(line) {
			skip++
		}
		if first == "" && strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
		}
	}
	if len(code) > 0 {
		return truncate(code[skip%len(code)], 60)
	}
	return truncate(first, 60)
}

func numberedLines(prompt string) []sourceLine {
	var out []sourceLine
	for _, line := range strings.Split(prompt, "\n") {
		m := numberedLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out = append(out, sourceLine{index: idx, code: m[2]})
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
