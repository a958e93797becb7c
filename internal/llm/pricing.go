package llm

import (
	"regexp"
	"strings"
)

// ModelCost is a model's price in USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of one request.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*c.InputPerMTok + float64(outputTokens)*c.OutputPerMTok) / 1_000_000
}

// dateSuffix matches the snapshot dates providers append to model IDs,
// e.g. "-20251001" or "-2024-08-06".
var dateSuffix = regexp.MustCompile(`-(\d{8}|\d{4}-\d{2}-\d{2})$`)

// LookupCost returns the price for a model ID, or nil when unknown.
// Vendor prefixes ("anthropic/...") and snapshot dates are ignored, and
// OpenRouter's dotted versions ("claude-haiku-4.5") match the dashed form.
func LookupCost(modelID string) *ModelCost {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if _, rest, ok := strings.Cut(id, "/"); ok {
		id = rest
	}
	candidates := []string{id, dateSuffix.ReplaceAllString(id, "")}
	if strings.HasPrefix(id, "claude-") {
		candidates = append(candidates, strings.ReplaceAll(candidates[1], ".", "-"))
	}
	for _, c := range candidates {
		if cost, ok := modelCosts[c]; ok {
			return &cost
		}
	}
	return nil
}

// modelCosts lists list prices from models.dev, snapshot dates removed.
// Last updated: 2026-02-15.
var modelCosts = map[string]ModelCost{
	"offline": {0, 0},
	"mock":    {0, 0},

	"claude-3-5-haiku":  {0.8, 4},
	"claude-3-5-sonnet": {3, 15},
	"claude-3-7-sonnet": {3, 15},
	"claude-3-haiku":    {0.25, 1.25},
	"claude-haiku-4-5":  {1, 5},
	"claude-sonnet-4":   {3, 15},
	"claude-sonnet-4-0": {3, 15},
	"claude-sonnet-4-5": {3, 15},
	"claude-opus-4":     {15, 75},
	"claude-opus-4-1":   {15, 75},
	"claude-opus-4-5":   {5, 25},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-5":        {1.25, 10},
	"gpt-5-mini":   {0.25, 2},
	"gpt-5-nano":   {0.05, 0.4},
	"gpt-5.1":      {1.25, 10},
	"o3-mini":      {1.1, 4.4},
	"o4-mini":      {1.1, 4.4},

	"gemini-2.0-flash":       {0.1, 0.4},
	"gemini-2.0-flash-lite":  {0.075, 0.3},
	"gemini-2.5-flash":       {0.3, 2.5},
	"gemini-2.5-flash-lite":  {0.1, 0.4},
	"gemini-2.5-pro":         {1.25, 10},
	"gemini-3-flash-preview": {0.5, 3},
	"gemini-3-pro-preview":   {2, 12},
}
