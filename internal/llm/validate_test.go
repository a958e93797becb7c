package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func questionSchema() *Schema {
	return &Schema{
		Name:        "quiz-question",
		Description: "One quiz question about a code cell",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{"type": "string", "minLength": 1},
				"kind":   map[string]any{"type": "string", "enum": []any{"exact", "free_text"}},
				"answer": map[string]any{"type": "string"},
				"choices": map[string]any{
					"type":     "array",
					"items":    map[string]any{"type": "string"},
					"maxItems": 4,
				},
			},
			"required":             []any{"prompt", "kind", "answer"},
			"additionalProperties": false,
		},
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"prompt":"What does factorial(0) return?","kind":"exact","answer":"1"}`, false},
		{"valid with choices", `{"prompt":"p","kind":"exact","answer":"1","choices":["0","1"]}`, false},
		{"missing answer", `{"prompt":"p","kind":"exact"}`, true},
		{"unknown kind", `{"prompt":"p","kind":"essay","answer":"1"}`, true},
		{"empty prompt", `{"prompt":"","kind":"exact","answer":"1"}`, true},
		{"too many choices", `{"prompt":"p","kind":"exact","answer":"a","choices":["a","b","c","d","e"]}`, true},
		{"extra field", `{"prompt":"p","kind":"exact","answer":"1","tier":"hard"}`, true},
		{"malformed", `{"prompt":`, true},
		{"empty", ``, true},
		{"whitespace", "  \n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateResponse(questionSchema(), json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			var inv *ErrInvalidResponse
			if err != nil && !errors.As(err, &inv) {
				t.Fatalf("expected *ErrInvalidResponse, got %T", err)
			}
		})
	}
}

func TestValidateResponse_NilSchemaAcceptsAnything(t *testing.T) {
	if err := validateResponse(nil, json.RawMessage(`not json`)); err != nil {
		t.Fatalf("nil schema should accept anything: %v", err)
	}
}

func TestValidateResponse_SameNameDifferentShape(t *testing.T) {
	loose := &Schema{Name: "answer", Definition: map[string]any{"type": "object"}}
	strict := &Schema{Name: "answer", Definition: map[string]any{
		"type":     "object",
		"required": []any{"answer"},
	}}

	if err := validateResponse(loose, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("loose schema rejected {}: %v", err)
	}
	if err := validateResponse(strict, json.RawMessage(`{}`)); err == nil {
		t.Fatal("strict schema reused the loose validator")
	}
}

func TestUnfence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```JSON\n[1,2]\n```  ", `[1,2]`},
		{"```{\"a\":1}```", `{"a":1}`},
		{`{"a":1}`, `{"a":1}`},
		{"```", "```"},
	}
	for _, tt := range tests {
		if got := unfence(tt.in); got != tt.want {
			t.Errorf("unfence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
