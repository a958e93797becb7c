package quiz

import "github.com/abhisek/celltutor/internal/llm"

// QuestionSchema defines the JSON schema for LLM question generation responses.
var QuestionSchema = &llm.Schema{
	Name:        "quiz-question",
	Description: "A single comprehension question about a code cell, with its expected answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "The question shown to the learner, in plain text",
			},
			"kind": map[string]any{
				"type":        "string",
				"enum":        []any{"exact", "free_text"},
				"description": "exact for short answers (a name, value, or choice); free_text for open explanations",
			},
			"answer": map[string]any{
				"type":        "string",
				"description": "The expected answer. For multiple choice: the text of the correct option.",
			},
			"choices": map[string]any{
				"type":        "array",
				"minItems":    0,
				"items":       map[string]any{"type": "string"},
				"description": "2-5 options for multiple choice questions. Empty array otherwise.",
			},
			"explanation": map[string]any{
				"type":        "string",
				"description": "Why the expected answer is correct, referring to the code",
			},
		},
		"required":             []any{"prompt", "kind", "answer", "choices", "explanation"},
		"additionalProperties": false,
	},
}

// JudgementSchema defines the JSON schema for free-text answer judging.
var JudgementSchema = &llm.Schema{
	Name:        "answer-judgement",
	Description: "Whether a learner's free-text answer is correct, with short feedback",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "True when the learner's answer means the same as the expected answer",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two sentences of feedback addressed to the learner",
			},
		},
		"required":             []any{"correct", "feedback"},
		"additionalProperties": false,
	},
}
