package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lines": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{"type": "integer"},
						"text":  map[string]any{"type": "string", "description": "What the line does"},
					},
					"required": []string{"index", "text"},
				},
			},
			"kind": map[string]any{"type": "string", "enum": []any{"exact", "free_text"}},
		},
		"required": []any{"lines"},
	})

	if s.Type != genai.TypeObject || len(s.Required) != 1 {
		t.Fatalf("unexpected root: type=%s required=%v", s.Type, s.Required)
	}
	lines := s.Properties["lines"]
	if lines.Type != genai.TypeArray || lines.MinItems == nil || *lines.MinItems != 1 {
		t.Fatalf("array bounds lost: %+v", lines)
	}
	item := lines.Items
	if item.Properties["index"].Type != genai.TypeInteger || len(item.Required) != 2 {
		t.Fatalf("item schema wrong: %+v", item)
	}
	if item.Properties["text"].Description != "What the line does" {
		t.Errorf("description lost")
	}
	if kind := s.Properties["kind"]; len(kind.Enum) != 2 || kind.Type != genai.TypeString {
		t.Errorf("enum lost: %+v", kind)
	}
}

func TestGeminiModelAliases(t *testing.T) {
	tests := map[string]string{
		"gemini-flash":     "gemini-2.5-flash",
		"gemini-lite":      "gemini-2.5-flash-lite",
		"gemini-2.0-flash": "gemini-2.0-flash",
	}
	for in, want := range tests {
		if got := resolveModel(in, geminiModels); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", in, got, want)
		}
	}
}
