package explain

import "github.com/abhisek/celltutor/internal/llm"

// SummarySchema defines the JSON schema for the overall cell summary.
var SummarySchema = &llm.Schema{
	Name:        "cell-summary",
	Description: "A short plain-language summary of what a notebook code cell does",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "2-4 sentence explanation of what the cell does and why",
			},
		},
		"required":             []any{"summary"},
		"additionalProperties": false,
	},
}

// LinesSchema defines the JSON schema for per-line explanations.
var LinesSchema = &llm.Schema{
	Name:        "cell-line-explanations",
	Description: "One explanation per numbered source line",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lines": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"index": map[string]any{
							"type":        "integer",
							"minimum":     0,
							"description": "The 0-based line number exactly as given in the prompt",
						},
						"text": map[string]any{
							"type":        "string",
							"description": "One sentence explaining this line",
						},
					},
					"required":             []any{"index", "text"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"lines"},
		"additionalProperties": false,
	},
}

// SimplifySchema defines the JSON schema for a simplified re-explanation.
var SimplifySchema = &llm.Schema{
	Name:        "simplified-explanation",
	Description: "A simpler re-explanation for a learner who is struggling",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{
				"type":        "string",
				"description": "The simplified explanation (3-6 short sentences)",
			},
		},
		"required":             []any{"text"},
		"additionalProperties": false,
	},
}

// AskSchema defines the JSON schema for answering a learner's question.
var AskSchema = &llm.Schema{
	Name:        "cell-question-answer",
	Description: "An answer to a learner's free-form question about a code cell",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "A direct answer grounded in the cell's code",
			},
		},
		"required":             []any{"answer"},
		"additionalProperties": false,
	},
}
