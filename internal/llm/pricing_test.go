package llm

import (
	"math"
	"testing"
)

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64 // input price per MTok; -1 means unknown
	}{
		{"claude-haiku-4-5-20251001", 1},
		{"anthropic/claude-haiku-4.5", 1},
		{"gpt-4o-mini-2024-07-18", 0.15},
		{"openai/gpt-4o", 2.5},
		{"gemini-2.5-flash", 0.3},
		{"offline", 0},
		{"someone/unknown-model", -1},
	}
	for _, tt := range tests {
		c := LookupCost(tt.model)
		switch {
		case tt.want < 0 && c != nil:
			t.Errorf("LookupCost(%q) = %+v, want nil", tt.model, c)
		case tt.want >= 0 && (c == nil || c.InputPerMTok != tt.want):
			t.Errorf("LookupCost(%q) = %+v, want input %v", tt.model, c, tt.want)
		}
	}
}

func TestModelCost_Cost(t *testing.T) {
	c := ModelCost{InputPerMTok: 3, OutputPerMTok: 15}
	if got := c.Cost(1_000_000, 200_000); math.Abs(got-6) > 1e-9 {
		t.Fatalf("Cost = %v, want 6", got)
	}
}
