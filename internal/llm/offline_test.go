package llm

import (
	"context"
	"encoding/json"
	"testing"
)

var offlineLinesSchema = &Schema{
	Name: "offline-test-lines",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"lines": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{"type": "integer", "minimum": 0},
						"text":  map[string]any{"type": "string"},
					},
					"required": []any{"index", "text"},
				},
			},
			"level": map[string]any{"type": "string", "enum": []any{"easy", "hard"}},
		},
		"required": []any{"summary", "lines", "level"},
	},
}

func TestOfflineProvider_ConformsToSchema(t *testing.T) {
	p := NewOfflineProvider()
	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "Explain:\n0 | for i in range(3):\n1 |     print(i)\n"}},
		Schema:   offlineLinesSchema,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out struct {
		Summary string `json:"summary"`
		Lines   []struct {
			Index int    `json:"index"`
			Text  string `json:"text"`
		} `json:"lines"`
		Level string `json:"level"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Summary == "" {
		t.Error("empty summary")
	}
	if len(out.Lines) != 2 || out.Lines[0].Index != 0 || out.Lines[1].Index != 1 {
		t.Errorf("expected one item per numbered line, got %+v", out.Lines)
	}
	if out.Level != "easy" {
		t.Errorf("enum should take its first value, got %q", out.Level)
	}
	if resp.Model != "offline" || resp.StopReason != "end" {
		t.Errorf("unexpected metadata: %q %q", resp.Model, resp.StopReason)
	}
}

func TestOfflineProvider_Deterministic(t *testing.T) {
	p := NewOfflineProvider()
	req := Request{
		Messages: []Message{{Role: RoleUser, Content: "0 | x = 1"}},
		Schema:   offlineLinesSchema,
	}
	a, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if string(a.Content) != string(b.Content) {
		t.Errorf("non-deterministic output:\n%s\n%s", a.Content, b.Content)
	}
}

func TestOfflineProvider_NoSchema(t *testing.T) {
	resp, err := NewOfflineProvider().Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "What is x?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var s string
	if err := json.Unmarshal(resp.Content, &s); err != nil {
		t.Fatalf("expected a JSON string, got %s", resp.Content)
	}
}

func TestOfflineProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewOfflineProvider().Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestDescribeLine(t *testing.T) {
	tests := map[string]string{
		"":             "Blank line.",
		"# note":       "Comment.",
		"def f(x):":    "Defines a function: def f(x):",
		"    return x": "Returns a value: return x",
		"import os":    "Imports a module: import os",
		"y = f(2)":     "Runs: y = f(2)",
		"while True:":  "Starts a loop: while True:",
		"if x > 0:":    "Branches on a condition: if x > 0:",
		"class A(B):":  "Defines a class: class A(B):",
	}
	for in, want := range tests {
		if got := describeLine(in); got != want {
			t.Errorf("describeLine(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOfflineProvider_EmptyArrayWhenMinItemsZero(t *testing.T) {
	schema := &Schema{
		Name: "offline-test-choices",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"choices": map[string]any{"type": "array", "minItems": 0, "items": map[string]any{"type": "string"}},
				"tags":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []any{"choices", "tags"},
		},
	}
	resp, err := NewOfflineProvider().Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "0 | x = 1"}},
		Schema:   schema,
	})
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		Choices []string `json:"choices"`
		Tags    []string `json:"tags"`
	}
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Choices) != 0 {
		t.Errorf("expected no choices, got %v", out.Choices)
	}
	if len(out.Tags) != 1 {
		t.Errorf("expected one tag by default, got %v", out.Tags)
	}
}

func TestSubjectLine(t *testing.T) {
	code := "0 | a = 1\n1 | \n2 | b = 2\n"
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"first code line", code, "a = 1"},
		{"one prior item skips blank lines", code + "Already asked:\n1. What does a do?\n", "b = 2"},
		{"wraps around", code + "1. x\n2. y\n", "a = 1"},
		{"no code", "\nWhat is x?\n", "What is x?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := subjectLine(tt.prompt); got != tt.want {
				t.Errorf("subjectLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
